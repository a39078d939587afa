package render

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/insightchat/internal/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 80, opts.Width)
	assert.Equal(t, StyleDark, opts.Style)
	assert.True(t, opts.EnableEmoji)
	assert.True(t, opts.PreserveNewLines)
	assert.True(t, opts.TableWrap)
	assert.False(t, opts.InlineTableLinks)

	chained := opts.WithWidth(120).WithStyle(StyleLight).WithTableWrap(false)
	assert.Equal(t, 120, chained.Width)
	assert.Equal(t, StyleLight, chained.Style)
	assert.False(t, chained.TableWrap)
	assert.Equal(t, 80, opts.Width)
}

func TestMarkdown_Table(t *testing.T) {
	ClearCache()
	content := "| Region | Sales |\n|---|---|\n| North | 120 |\n| South | 80 |"

	out, err := Markdown(content, DefaultOptions().WithStyle(StyleNoTTY))
	require.NoError(t, err)
	assert.Contains(t, out, "Region")
	assert.Contains(t, out, "North")
	assert.Contains(t, out, "120")
	assert.Equal(t, 1, CacheSize())
}

func TestMarkdownWithWidth(t *testing.T) {
	out, err := MarkdownWithWidth("**bold** text", 40)
	require.NoError(t, err)
	assert.Contains(t, out, "bold")
}

func TestAnswer(t *testing.T) {
	opts := DefaultOptions().WithStyle(StyleNoTTY)

	assert.Equal(t, "", Answer("", opts))
	assert.Equal(t, "  ", Answer("  ", opts))

	out := Answer("# Summary\n\nRevenue is up.", opts)
	assert.False(t, strings.HasPrefix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "Revenue is up.")
}

func TestMarkdown_ConcurrentUse(t *testing.T) {
	ClearCache()
	opts := DefaultOptions().WithStyle(StyleNoTTY)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Markdown("- a\n- b", opts)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, CacheSize())
}

func TestResolveStyle(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "style.json")
	require.NoError(t, os.WriteFile(custom, []byte(`{}`), 0o644))

	tests := []struct {
		in   string
		want string
	}{
		{"", StyleDark},
		{"dark", StyleDark},
		{"LIGHT", StyleLight},
		{"tokyonight", StyleTokyoNight},
		{"plain", StyleNoTTY},
		{"auto", StyleAuto},
		{custom, custom},
		{filepath.Join(dir, "missing.json"), StyleDark},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStyle(tt.in))
		})
	}
}

func TestStyleNames(t *testing.T) {
	names := StyleNames()
	assert.Contains(t, names, StyleDark)
	assert.Contains(t, names, StyleNoTTY)
	for _, n := range names {
		assert.True(t, IsBuiltinStyle(n), n)
	}
	assert.False(t, IsBuiltinStyle("neon"))
}

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "")
	md := config.MarkdownConfig{Style: "light", TableWrap: false, InlineTableLinks: true}

	opts := OptionsFromConfigWithWidth(md, 100)
	assert.Equal(t, "light", opts.Style)
	assert.Equal(t, 100, opts.Width)
	assert.False(t, opts.TableWrap)
	assert.True(t, opts.InlineTableLinks)
	assert.False(t, opts.EnableEmoji)

	t.Setenv("GLAMOUR_STYLE", "dracula")
	assert.Equal(t, "dracula", OptionsFromConfig(md).Style)
}

func TestTUIThemes(t *testing.T) {
	t.Cleanup(func() { SetTUITheme(DefaultTUITheme) })

	assert.Equal(t, DefaultTUITheme, GetTUITheme().Name)
	assert.Equal(t, []string{"tokyonight", "catppuccin", "nord", "mono"}, TUIThemeNames())

	assert.True(t, SetTUITheme("mono"))
	assert.Equal(t, "mono", GetTUITheme().Name)

	assert.False(t, SetTUITheme("neon"))
	assert.Equal(t, "mono", GetTUITheme().Name)

	_, ok := GetTUIThemeByName("nord")
	assert.True(t, ok)
}
