package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize("es"))

	assert.Equal(t, "Pedido #7 autorizado y stock descontado", T("es", KeyOrderConfirmed, 7))
	assert.Equal(t, "Order #7 authorized and stock deducted", T("en", KeyOrderConfirmed, 7))

	// unknown language falls back to the default
	assert.Equal(t, "Recurso no encontrado", T("fr", KeyNotFound))
	// unknown key is returned as-is
	assert.Equal(t, "nope.key", T("en", "nope.key"))

	assert.True(t, IsSupported("en"))
	assert.False(t, IsSupported("fr"))
	assert.Equal(t, "es", DefaultLanguage())
}
