package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lekka-app/lekka/internal/app"
	_ "github.com/lekka-app/lekka/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
