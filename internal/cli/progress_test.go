package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Quiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "Waiting", true)
	p.Start()
	p.Succeed("done")
	assert.Empty(t, buf.String())
}

func TestProgress_FinalMessage(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "Waiting for login", false)
	p.Start()
	p.Fail("Login failed")
	assert.Contains(t, buf.String(), "Login failed")
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), "✓ saved")
	assert.Contains(t, FormatWarning("careful"), "⚠ careful")
	assert.Contains(t, FormatError(errors.New("boom")), "Error: boom")
}
