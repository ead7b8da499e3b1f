package engine

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// cookieDomain restricts which cookie-jar entries are sent to the music API.
const cookieDomain = "youtube.com"

// ReadCookieFile parses a Netscape-format cookie jar and returns the youtube.com
// cookies as a single Cookie header value ("a=1; b=2").
func ReadCookieFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read cookie file: %w", err)
	}
	defer f.Close()
	return parseCookieJar(bufio.NewScanner(f))
}

func parseCookieJar(sc *bufio.Scanner) (string, error) {
	var parts []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// #HttpOnly_ prefixed lines are real cookies, other # lines are comments.
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		domain := strings.TrimPrefix(fields[0], ".")
		if domain != cookieDomain && !strings.HasSuffix(domain, "."+cookieDomain) {
			continue
		}
		name, value := fields[5], strings.ReplaceAll(fields[6], `"`, "")
		parts = append(parts, name+"="+value)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read cookie file: %w", err)
	}
	return strings.Join(parts, "; "), nil
}
