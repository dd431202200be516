package sgml

import (
	"strings"

	"github.com/rotisserie/eris"
)

// uuDecode decodes a uuencoded body. The body starts with a
// "begin NNN filename" line and ends with a lone backtick or "end" line.
// Lines that fail to decode cleanly are skipped rather than aborting the
// whole document; EDGAR archives contain occasional padding damage.
func uuDecode(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "begin ") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, eris.New("uudecode: missing begin line")
	}

	var out []byte
	for _, line := range lines[start:] {
		line = strings.TrimRight(line, "\r")
		if line == "`" || line == "end" {
			break
		}
		if line == "" {
			continue
		}

		// First byte encodes the decoded length of the line.
		n := int(line[0]-' ') & 0x3f
		if n == 0 {
			break
		}

		data := line[1:]
		var decoded []byte
		for i := 0; i+3 < len(data) && len(decoded) < n; i += 4 {
			c := [4]byte{
				(data[i] - ' ') & 0x3f,
				(data[i+1] - ' ') & 0x3f,
				(data[i+2] - ' ') & 0x3f,
				(data[i+3] - ' ') & 0x3f,
			}
			decoded = append(decoded,
				c[0]<<2|c[1]>>4,
				c[1]<<4|c[2]>>2,
				c[2]<<6|c[3],
			)
		}
		if len(decoded) > n {
			decoded = decoded[:n]
		}
		out = append(out, decoded...)
	}

	if len(out) == 0 {
		return nil, eris.New("uudecode: no data lines")
	}
	return out, nil
}
