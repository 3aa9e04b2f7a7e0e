// Package preview composes a generated project into one self-contained HTML
// document for rendering inside a sandboxed frame.
package preview

import (
	"regexp"
	"strings"

	"prompt2web_server/internal/types"
	"prompt2web_server/internal/utils"
)

// IndexPath is the entry document of every previewable project.
const IndexPath = "index.html"

// MissingIndexDocument is rendered when a project has no index.html.
const MissingIndexDocument = "<html><body><h1>No index.html found</h1></body></html>"

var (
	localStylesheetLink = regexp.MustCompile(`(?i)<link[^>]*href=["']([^"']*\.css)["'][^>]*>`)
	localScriptTag      = regexp.MustCompile(`(?i)<script[^>]*src=["']([^"']*\.js)["'][^>]*>\s*</script\s*>`)
	headClose           = regexp.MustCompile(`(?i)</head\s*>`)
	bodyClose           = regexp.MustCompile(`(?i)</body\s*>`)
	scriptClose         = regexp.MustCompile(`(?i)</script`)
	styleClose          = regexp.MustCompile(`(?i)</style`)
)

const editModeStyle = `<style>
[contenteditable]:hover { outline: 2px dashed rgba(120,120,120,0.7) !important; cursor: text !important; }
[contenteditable]:focus { outline: 2px dashed rgba(120,120,120,1) !important; }
</style>`

const editModeScript = `<script>
(function() {
  function markEditable() {
    document.querySelectorAll('h1,h2,h3,h4,h5,h6,p,span,a,button,li,td,th,label,div').forEach(function(el) {
      if (el.children.length === 0 || el.textContent.trim().length < 200) {
        el.setAttribute('contenteditable', 'true');
      }
    });
  }
  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', markEditable);
  } else {
    markEditable();
  }
})();
</script>`

// Compose returns the preview document for project. Local stylesheets and scripts
// are inlined into index.html; editMode adds an overlay that makes leaf-ish
// elements directly editable. A nil project yields an empty string and a project
// without index.html yields MissingIndexDocument. The project is never modified.
func Compose(project *types.Project, editMode bool) string {
	if project == nil {
		return ""
	}
	index, ok := project.FindFile(IndexPath)
	if !ok {
		return MissingIndexDocument
	}

	var css, js strings.Builder
	for _, f := range project.Files {
		if f.Path == IndexPath {
			continue
		}
		switch {
		case utils.IsCSS(f.Language, f.Path):
			css.WriteString(f.Content)
			css.WriteString("\n")
		case utils.IsJavaScript(f.Language, f.Path):
			js.WriteString(f.Content)
			js.WriteString("\n")
		}
	}

	html := index.Content
	html = stripLocal(localStylesheetLink, html)
	html = stripLocal(localScriptTag, html)

	if css.Len() > 0 {
		safe := styleClose.ReplaceAllString(css.String(), `<\/style`)
		html = insertBeforeHeadClose(html, "<style>"+safe+"</style>")
	}
	if js.Len() > 0 {
		safe := scriptClose.ReplaceAllString(js.String(), `<\/script`)
		html = insertBeforeBodyClose(html, "<script>"+safe+"</script>")
	}
	if editMode {
		html = insertBeforeHeadClose(html, editModeStyle+editModeScript)
	}
	return html
}

// stripLocal removes every tag matched by re whose referenced URL is local.
func stripLocal(re *regexp.Regexp, html string) string {
	return re.ReplaceAllStringFunc(html, func(tag string) string {
		m := re.FindStringSubmatch(tag)
		if len(m) > 1 && isAbsoluteURL(m[1]) {
			return tag
		}
		return ""
	})
}

func isAbsoluteURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http:") ||
		strings.HasPrefix(lower, "https:") ||
		strings.HasPrefix(lower, "//")
}

// insertBeforeHeadClose places fragment before the first </head>, or at the start
// of the document when there is none.
func insertBeforeHeadClose(html, fragment string) string {
	loc := headClose.FindStringIndex(html)
	if loc == nil {
		return fragment + html
	}
	return html[:loc[0]] + fragment + html[loc[0]:]
}

// insertBeforeBodyClose places fragment before the last </body>, or at the end of
// the document when there is none.
func insertBeforeBodyClose(html, fragment string) string {
	locs := bodyClose.FindAllStringIndex(html, -1)
	if len(locs) == 0 {
		return html + fragment
	}
	at := locs[len(locs)-1][0]
	return html[:at] + fragment + html[at:]
}
