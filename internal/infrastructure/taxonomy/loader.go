package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shelfsense/backend/internal/domain"
)

// Load reads one category label per line. Blank lines and lines starting
// with '#' are skipped, as in the published Google product taxonomy file.
func Load(r io.Reader) (*domain.Taxonomy, error) {
	var labels []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}

	return domain.NewTaxonomy(labels), nil
}

// LoadFile loads the taxonomy from path
func LoadFile(path string) (*domain.Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()

	return Load(f)
}
