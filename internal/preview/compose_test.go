package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"prompt2web_server/internal/types"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Site</title>
  <link rel="stylesheet" href="src/css/style.css">
  <link rel="stylesheet" href="https://fonts.googleapis.com/css2?family=Inter&x=.css">
</head>
<body>
  <h1>Hello</h1>
  <script src="src/js/app.js"></script>
  <script src="https://cdn.example.com/lib.js"></script>
</body>
</html>`

func sampleProject() *types.Project {
	return &types.Project{
		ProjectName: "site",
		Files: []types.File{
			{Path: "index.html", Content: indexHTML, Language: "html"},
			{Path: "src/css/style.css", Content: "body { color: red; }", Language: "css"},
			{Path: "src/css/extra.css", Content: ".x { margin: 0; }"},
			{Path: "src/js/app.js", Content: "console.log('app');", Language: "javascript"},
			{Path: "data.json", Content: `{"a":1}`, Language: "json"},
		},
	}
}

func TestCompose_InlinesStylesheets(t *testing.T) {
	out := Compose(sampleProject(), false)

	require.NotContains(t, out, `href="src/css/style.css"`)
	require.Contains(t, out, "fonts.googleapis.com", "absolute stylesheet links are kept")

	styleAt := strings.Index(out, "<style>body { color: red; }\n.x { margin: 0; }\n</style>")
	headAt := strings.Index(out, "</head>")
	require.NotEqual(t, -1, styleAt)
	require.Less(t, styleAt, headAt)
}

func TestCompose_InlinesScripts(t *testing.T) {
	out := Compose(sampleProject(), false)

	require.NotContains(t, out, `src="src/js/app.js"`)
	require.Contains(t, out, `src="https://cdn.example.com/lib.js"`)
	require.NotContains(t, out, `{"a":1}`, "json files are not inlined")

	scriptAt := strings.Index(out, "<script>console.log('app');\n</script>")
	bodyAt := strings.LastIndex(out, "</body>")
	require.NotEqual(t, -1, scriptAt)
	require.Less(t, scriptAt, bodyAt)
}

func TestCompose_MissingIndex(t *testing.T) {
	project := &types.Project{Files: []types.File{{Path: "about.html", Content: "<p>x</p>"}}}

	for _, edit := range []bool{false, true} {
		out := Compose(project, edit)
		require.Equal(t, MissingIndexDocument, out)
		require.Contains(t, out, "No index.html")
	}
}

func TestCompose_NilProject(t *testing.T) {
	require.Equal(t, "", Compose(nil, true))
}

func TestCompose_NoHeadOrBody(t *testing.T) {
	project := &types.Project{Files: []types.File{
		{Path: "index.html", Content: "<h1>bare</h1>"},
		{Path: "a.css", Content: "h1{}"},
		{Path: "a.js", Content: "go()"},
	}}

	out := Compose(project, false)
	require.Equal(t, "<style>h1{}\n</style><h1>bare</h1><script>go()\n</script>", out)
}

func TestCompose_EscapesScriptClose(t *testing.T) {
	project := &types.Project{Files: []types.File{
		{Path: "index.html", Content: "<html><head></head><body></body></html>"},
		{Path: "a.js", Content: `el.innerHTML = "</script>";`},
	}}

	out := Compose(project, false)
	require.Contains(t, out, `el.innerHTML = "<\/script>";`)
}

func TestCompose_EscapesStyleClose(t *testing.T) {
	project := &types.Project{Files: []types.File{
		{Path: "index.html", Content: "<html><head></head><body></body></html>"},
		{Path: "a.css", Content: `p::after{content:"</STYLE><script>alert(1)</script>"}`},
	}}

	out := Compose(project, false)
	require.Contains(t, out, `content:"<\/STYLE><script>alert(1)</script>"`)
	require.Equal(t, 1, strings.Count(strings.ToLower(out), "</style"))
}

func TestCompose_EditMode(t *testing.T) {
	plain := Compose(sampleProject(), false)
	edit := Compose(sampleProject(), true)

	require.NotContains(t, plain, "contenteditable")
	require.Contains(t, edit, "[contenteditable]:hover")
	require.Contains(t, edit, "dashed")
	require.Contains(t, edit, "h1,h2,h3,h4,h5,h6,p,span,a,button,li,td,th,label,div")
	require.Contains(t, edit, "textContent.trim().length < 200")
	require.Less(t, strings.Index(edit, "[contenteditable]:hover"), strings.Index(edit, "</head>"))
}

func TestCompose_Idempotent(t *testing.T) {
	project := sampleProject()
	for _, edit := range []bool{false, true} {
		require.Equal(t, Compose(project, edit), Compose(project, edit))
	}
}

func TestCompose_DoesNotMutateProject(t *testing.T) {
	project := sampleProject()
	before := *project
	beforeFiles := append([]types.File(nil), project.Files...)

	_ = Compose(project, true)

	require.Equal(t, before.ProjectName, project.ProjectName)
	require.Equal(t, beforeFiles, project.Files)
}

func TestCache_Render(t *testing.T) {
	cache, err := NewCache(1<<20, 0)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	project := sampleProject()
	key := Key("s1", 1, false)

	first := cache.Render(key, project, false)
	cache.Wait()
	require.Equal(t, Compose(project, false), first)

	// A cached entry is served even if the caller passes a different project for the same key.
	second := cache.Render(key, &types.Project{}, false)
	require.Equal(t, first, second)

	require.NotEqual(t, Key("s1", 1, false), Key("s1", 2, false))
	require.NotEqual(t, Key("s1", 1, false), Key("s1", 1, true))
}
