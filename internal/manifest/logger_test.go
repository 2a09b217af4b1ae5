package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLogger_Nil(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(zap.NewExample())
	SetLogger(nil)

	l := Logger()
	if assert.NotNil(t, l) {
		assert.NotPanics(t, func() { l.Debug("after reset", zap.String("package", "manifest")) })
	}
}
