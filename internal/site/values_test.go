package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	v := Values{
		"title": "My Site",
		"author": Values{
			"name":  "Ada",
			"email": "ada@example.com",
		},
	}

	got, ok := v.Lookup("title")
	assert.True(t, ok)
	assert.Equal(t, "My Site", got)

	got, ok = v.Lookup("author.name")
	assert.True(t, ok)
	assert.Equal(t, "Ada", got)

	// A typo is an explicit miss, never a silently empty chain.
	_, ok = v.Lookup("author.nmae")
	assert.False(t, ok)

	_, ok = v.Lookup("missing.deeply.nested")
	assert.False(t, ok)

	// Descending through a scalar is a miss, not a panic.
	_, ok = v.Lookup("title.sub")
	assert.False(t, ok)
}

func TestGetTotalLookup(t *testing.T) {
	v := Values{"title": "My Site"}

	assert.Equal(t, "My Site", v.Get("title"))
	assert.Equal(t, "", v.Get("absent"))

	// Reading an absent key must not create it.
	_, ok := v.Lookup("absent")
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	base := Values{
		"title": "My Site",
		"links": Values{"home": "/", "about": "/about"},
	}
	overlay := Values{
		"title": "Staging Site",
		"links": Values{"about": "/about-v2", "blog": "/blog"},
		"extra": nil, // nil values are ignored
	}

	merged := base.Merge(overlay)

	assert.Equal(t, "Staging Site", merged.Get("title"))
	assert.Equal(t, "/", merged.Get("links.home"))
	assert.Equal(t, "/about-v2", merged.Get("links.about"))
	assert.Equal(t, "/blog", merged.Get("links.blog"))
	_, ok := merged.Lookup("extra")
	assert.False(t, ok)

	// Inputs untouched.
	assert.Equal(t, "My Site", base.Get("title"))
	assert.Equal(t, "/about", base.Get("links.about"))
}

func TestParseEnvironments(t *testing.T) {
	data := []byte(`
default:
  title: My Site
  analytics:
    enabled: false
production:
  analytics:
    enabled: true
`)

	v, err := Parse(data, "default")
	require.NoError(t, err)
	assert.Equal(t, "My Site", v.Get("title"))
	assert.Equal(t, false, v.Get("analytics.enabled"))

	v, err = Parse(data, "production")
	require.NoError(t, err)
	assert.Equal(t, "My Site", v.Get("title"), "defaults survive the overlay")
	assert.Equal(t, true, v.Get("analytics.enabled"))
}

func TestParseRequiresDefaultSection(t *testing.T) {
	_, err := Parse([]byte("production:\n  title: x\n"), "production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"default" section`)
}

func TestParseUnknownEnvironment(t *testing.T) {
	_, err := Parse([]byte("default:\n  title: x\n"), "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"staging"`)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  title: Loaded\n"), 0o644))

	v, err := Load(path, "default")
	require.NoError(t, err)
	assert.Equal(t, "Loaded", v.Get("title"))

	_, err = Load(filepath.Join(t.TempDir(), "gone.yml"), "default")
	require.Error(t, err)
}

func TestMergeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genFlat := gen.MapOf(gen.RegexMatch(`[a-z]{1,5}`), gen.AlphaString()).
		Map(func(m map[string]string) Values {
			out := make(Values, len(m))
			for k, v := range m {
				out[k] = v
			}
			return out
		})

	properties.Property("overlay keys win, other keys survive", prop.ForAll(
		func(base, overlay Values) bool {
			merged := base.Merge(overlay)
			for k, v := range overlay {
				if merged[k] != v {
					return false
				}
			}
			for k, v := range base {
				if _, shadowed := overlay[k]; !shadowed && merged[k] != v {
					return false
				}
			}
			return true
		},
		genFlat, genFlat,
	))

	properties.Property("merging with an empty overlay is identity", prop.ForAll(
		func(base Values) bool {
			merged := base.Merge(Values{})
			if len(merged) != len(base) {
				return false
			}
			for k, v := range base {
				if merged[k] != v {
					return false
				}
			}
			return true
		},
		genFlat,
	))

	properties.TestingRun(t)
}
