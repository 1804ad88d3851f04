// Package ocr turns a photographed results table into plain text.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyImage is returned for a zero-length image.
var ErrEmptyImage = errors.New("empty image")

// Recognizer extracts text from image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// Tesseract runs the tesseract command line tool, feeding the image on stdin
// and reading the text from stdout.
type Tesseract struct {
	Command string // default "tesseract"
	Lang    string // default "eng"
}

func (t Tesseract) Recognize(ctx context.Context, img []byte) (string, error) {
	if len(img) == 0 {
		return "", ErrEmptyImage
	}
	command := t.Command
	if command == "" {
		command = "tesseract"
	}
	lang := t.Lang
	if lang == "" {
		lang = "eng"
	}

	cmd := exec.CommandContext(ctx, command, "stdin", "stdout", "-l", lang)
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", command, err, msg)
		}
		return "", fmt.Errorf("%s: %w", command, err)
	}
	return stdout.String(), nil
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, img []byte) (string, error)

func (f Func) Recognize(ctx context.Context, img []byte) (string, error) {
	return f(ctx, img)
}
