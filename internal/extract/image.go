package extract

import (
	"bytes"
	"fmt"
	"os/exec"
)

// extractImage runs OCR by invoking the tesseract binary, which must be on
// PATH. Keeping tesseract out-of-process avoids a cgo dependency.
func extractImage(path string) (string, error) {
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return "", fmt.Errorf("tesseract not found on PATH: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(bin, path, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract %s: %v: %s", path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}
