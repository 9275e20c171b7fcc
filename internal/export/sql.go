package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/WenkChr/NGD-AGOL-Download/internal/engine"
)

// WriteStatements writes one UPDATE per line in emission order
func WriteStatements(path string, stmts []engine.Statement) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, s := range stmts {
		if _, err := w.WriteString(s.SQL()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
