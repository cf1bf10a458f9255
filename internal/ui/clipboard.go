package ui

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var errNoClipboard = errors.New("no clipboard available (install xclip, xsel, or wl-clipboard)")

// clipboardWrite is swapped out in tests
var clipboardWrite = func(text string) error {
	if clipboard.Unsupported {
		return errNoClipboard
	}
	return clipboard.WriteAll(text)
}

// CopyToClipboard copies the given text to the system clipboard
func CopyToClipboard(text string) error {
	if text == "" {
		return fmt.Errorf("cannot copy empty text to clipboard")
	}
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}
