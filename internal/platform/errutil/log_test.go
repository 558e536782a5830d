package errutil

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	err := oops.In("store").Code("NOT_FOUND").Errorf("ticket T1 missing")
	assert.Equal(t, "NOT_FOUND", Code(err))
	assert.Equal(t, "", Code(errors.New("plain")))
	assert.Equal(t, "", Code(nil))
}

func TestLogErrorFlattensOopsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := oops.In("audit").Code("AUDIT_WRITE").With("entity", "Ticket").Errorf("insert failed")
	LogError(logger, "audit record dropped", err, slog.String("action", "UPDATE_TICKET"))

	out := buf.String()
	assert.Contains(t, out, "audit record dropped")
	assert.Contains(t, out, "code=AUDIT_WRITE")
	assert.Contains(t, out, "action=UPDATE_TICKET")
	assert.Contains(t, out, "entity")
}

func TestLogErrorPlainAndNil(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogError(logger, "plain", errors.New("socket closed"))
	LogError(logger, "no error", nil)

	assert.Contains(t, buf.String(), `error="socket closed"`)
	assert.Contains(t, buf.String(), "msg=\"no error\"")
}
