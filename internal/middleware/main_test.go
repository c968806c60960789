// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"os"
	"testing"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
)

func TestMain(m *testing.M) {
	i18n.MustInit()
	os.Exit(m.Run())
}
