package docs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schema struct {
	Ref        string            `json:"$ref"`
	Type       string            `json:"type"`
	Items      *schema           `json:"items"`
	AllOf      []schema          `json:"allOf"`
	Properties map[string]schema `json:"properties"`
}

type operation struct {
	Parameters []struct {
		In     string `json:"in"`
		Schema schema `json:"schema"`
	} `json:"parameters"`
	Responses map[string]struct {
		Schema schema `json:"schema"`
	} `json:"responses"`
}

type document struct {
	BasePath    string                          `json:"basePath"`
	Paths       map[string]map[string]operation `json:"paths"`
	Definitions map[string]json.RawMessage      `json:"definitions"`
}

func readDocument(t *testing.T) (document, string) {
	t.Helper()
	raw := SwaggerInfo.ReadDoc()
	var doc document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc, raw
}

func TestEveryReferenceResolves(t *testing.T) {
	t.Parallel()
	doc, raw := readDocument(t)
	assert.Equal(t, "/api/v1", doc.BasePath)

	refs := regexp.MustCompile(`"\$ref": "#/definitions/([^"]+)"`).FindAllStringSubmatch(raw, -1)
	require.NotEmpty(t, refs)
	for _, m := range refs {
		assert.Contains(t, doc.Definitions, m[1])
	}
}

var (
	successLine = regexp.MustCompile(`@Success\s+(\d+)\s+\{object\}\s+response\.APIResponse\{data=(\[\])?([\w.]+)\}`)
	bodyLine    = regexp.MustCompile(`@Param\s+\w+\s+body\s+([\w.]+)`)
	routerLine  = regexp.MustCompile(`@Router\s+(\S+)\s+\[(\w+)\]`)
)

func qualify(pkg, name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return pkg + "." + name
}

// Each handler's annotations must be reflected in the served document:
// the route, its request body and the type of its success payload.
func TestDocumentMatchesHandlerAnnotations(t *testing.T) {
	t.Parallel()
	doc, _ := readDocument(t)

	files, err := filepath.Glob("../internal/*/handler.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	routes := 0
	for _, file := range files {
		src, err := os.ReadFile(file)
		require.NoError(t, err)
		pkg := filepath.Base(filepath.Dir(file))

		var success, body []string
		for _, line := range strings.Split(string(src), "\n") {
			if m := successLine.FindStringSubmatch(line); m != nil {
				success = m
			}
			if m := bodyLine.FindStringSubmatch(line); m != nil {
				body = m
			}
			m := routerLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			routes++
			path, method := m[1], strings.ToLower(m[2])
			op, ok := doc.Paths[path][method]
			if !assert.True(t, ok, "%s %s missing from the document", method, path) {
				success, body = nil, nil
				continue
			}

			if success != nil {
				resp, ok := op.Responses[success[1]]
				require.True(t, ok, "%s %s: no %s response", method, path, success[1])
				require.Len(t, resp.Schema.AllOf, 2, "%s %s", method, path)
				data := resp.Schema.AllOf[1].Properties["data"]
				if success[2] != "" {
					assert.Equal(t, "array", data.Type, "%s %s", method, path)
					require.NotNil(t, data.Items, "%s %s", method, path)
					data = *data.Items
				}
				assert.Equal(t, "#/definitions/"+qualify(pkg, success[3]), data.Ref, "%s %s", method, path)
			}
			if body != nil {
				var found bool
				for _, p := range op.Parameters {
					if p.In == "body" {
						found = true
						assert.Equal(t, "#/definitions/"+qualify(pkg, body[1]), p.Schema.Ref, "%s %s", method, path)
					}
				}
				assert.True(t, found, "%s %s: no body parameter", method, path)
			}
			success, body = nil, nil
		}
	}
	assert.Equal(t, 17, routes)
}
