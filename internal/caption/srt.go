package caption

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// srtTiming matches "00:01:02,345 --> 00:01:04,000". Some tools emit '.'
// instead of ',' before the milliseconds.
var srtTiming = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseSRT reads SubRip subtitles and returns one Entry per block.
// Multi-line block text is joined with a single space. Duration is end
// minus start, never negative.
func ParseSRT(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries []Entry
		block   []string
		lineNo  int
	)

	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		e, err := parseBlock(block)
		block = block[:0]
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseBlock parses an optional index line, a timing line and text lines.
func parseBlock(lines []string) (Entry, error) {
	if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return Entry{}, fmt.Errorf("missing timing line: %w", ErrMalformedSRT)
	}

	m := srtTiming.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if m == nil {
		return Entry{}, fmt.Errorf("bad timing %q: %w", lines[0], ErrMalformedSRT)
	}
	start := srtSeconds(m[1:5])
	end := srtSeconds(m[5:9])

	text := make([]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		text = append(text, strings.TrimSpace(l))
	}

	return Entry{
		Text:     strings.Join(text, " "),
		Start:    start,
		Duration: max(end-start, 0),
	}, nil
}

// srtSeconds converts [hh, mm, ss, mmm] captures into seconds.
func srtSeconds(parts []string) float64 {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return float64(h*3600+m*60+s) + float64(ms)/1000
}
