// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetPlain_Toggles(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })

	SetPlain(true)
	assert.True(t, IsPlain())
	SetPlain(false)
	assert.False(t, IsPlain())
}

func TestIcon_RenderPlainMode(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })
	SetPlain(true)

	assert.Equal(t, "✓", IconSuccess.Render())
	assert.Equal(t, "✗", IconError.Render())
	assert.Equal(t, "→", IconArrow.Render())
}

func TestIcon_RenderStyledContainsGlyph(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })
	SetPlain(false)

	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestProgressBar_PlainMode(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })
	SetPlain(true)

	assert.Equal(t, "3/10", ProgressBar(3, 10, 20))
}

func TestProgressBar_StyledShowsPercentage(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })
	SetPlain(false)

	out := ProgressBar(5, 10, 20)
	assert.Contains(t, out, "50%")
	assert.True(t, strings.Contains(out, "█") || strings.Contains(out, "░"))
}

func TestProgressBar_Bounds(t *testing.T) {
	t.Cleanup(func() { SetPlain(false) })
	SetPlain(false)

	assert.Contains(t, ProgressBar(0, 10, 20), "0%")
	assert.Contains(t, ProgressBar(10, 10, 20), "100%")
}

func TestRepeatChar(t *testing.T) {
	assert.Equal(t, "", repeatChar('x', 0))
	assert.Equal(t, "", repeatChar('x', -3))
	assert.Equal(t, "xxx", repeatChar('x', 3))
}
