package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesRender(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{
		"home.html", "register.html", "login.html", "set_password.html",
		"landing.html", "customer.html", "seller.html", "search.html", "error.html",
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tmpl.ExecuteTemplate(&buf, name, map[string]any{
				"Title":    "t",
				"Message":  "<b>hi</b>",
				"Identity": map[string]any{"DisplayName": "Ann"},
				"Products": []map[string]any{{"Name": "Lamp", "Price": 12.5, "ImageURLs": []string{"https://img/x.jpg"}}},
			}))
			assert.Contains(t, buf.String(), "</html>")
			assert.NotContains(t, buf.String(), "<b>hi</b>")
		})
	}
}

func TestSearchTemplateEscapesTerm(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "search.html", map[string]any{
		"Title":  "Search",
		"Search": `<script>x</script>`,
	}))
	assert.NotContains(t, buf.String(), "<script>x</script>")
	assert.Contains(t, buf.String(), "No products yet.")
}
