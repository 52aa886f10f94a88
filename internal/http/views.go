package http

import (
	"html/template"

	"github.com/dustin/go-humanize"

	"github.com/tkstan/fusiondoc/internal/domain"
)

var fileIcons = map[domain.FileType]string{
	domain.FileTypePDF:     "📕",
	domain.FileTypePPTX:    "📙",
	domain.FileTypeDOCX:    "📘",
	domain.FileTypeUnknown: "📄",
}

type fileRow struct {
	Index    int
	Last     bool
	Name     string
	FileType string
	Icon     string
	Size     string
}

type workspacePage struct {
	ID       string
	Rows     []fileRow
	Busy     bool
	Error    string
	Result   *domain.Result
	Accept   string
	MaxBytes string
}

func iconFor(ft domain.FileType) string {
	if icon, ok := fileIcons[ft]; ok {
		return icon
	}
	return fileIcons[domain.FileTypeUnknown]
}

func buildPage(state domain.State, maxUploadBytes int64) workspacePage {
	rows := make([]fileRow, 0, len(state.Files))
	for i, f := range state.Files {
		rows = append(rows, fileRow{
			Index:    i,
			Last:     i == len(state.Files)-1,
			Name:     f.Name,
			FileType: string(f.FileType),
			Icon:     iconFor(f.FileType),
			Size:     humanize.Bytes(uint64(max(f.Size, 0))),
		})
	}

	page := workspacePage{
		ID:     state.ID,
		Rows:   rows,
		Busy:   state.Busy,
		Error:  state.Error,
		Result: state.Result,
		Accept: ".pdf,.pptx,.docx",
	}
	if maxUploadBytes > 0 {
		page.MaxBytes = humanize.Bytes(uint64(maxUploadBytes))
	}
	return page
}

const workspaceTemplateName = "workspace.html"

var workspaceTemplate = template.Must(template.New(workspaceTemplateName).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Merge documents</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 44rem; margin: 2rem auto; }
#drop { border: 2px dashed #999; border-radius: 8px; padding: 2rem; text-align: center; cursor: pointer; }
#drop.over { background: #eef; }
ul { list-style: none; padding: 0; }
li { display: flex; gap: .5rem; align-items: center; padding: .4rem 0; border-bottom: 1px solid #eee; }
li .name { flex: 1; }
.error { background: #fdd; color: #900; padding: .75rem; border-radius: 6px; }
</style>
</head>
<body data-workspace="{{.ID}}">
<h1>Merge documents</h1>

<div id="drop">Drop PDF, PPTX or DOCX files here, or click to choose{{if .MaxBytes}} (up to {{.MaxBytes}} each){{end}}</div>
<input id="picker" type="file" multiple accept="{{.Accept}}" hidden>

{{if .Error}}<p class="error" role="alert">{{.Error}}</p>{{end}}

{{if .Rows}}
<ul id="files">
{{range .Rows}}
  <li data-index="{{.Index}}">
    <span class="icon" title="{{.FileType}}">{{.Icon}}</span>
    <span class="name">{{.Name}}</span>
    <span class="size">{{.Size}}</span>
    <button data-action="up" {{if eq .Index 0}}disabled{{end}}>↑</button>
    <button data-action="down" {{if .Last}}disabled{{end}}>↓</button>
    <button data-action="remove" data-name="{{.Name}}">Remove</button>
  </li>
{{end}}
</ul>
{{end}}

<p>
  <button id="merge" {{if .Busy}}disabled{{end}}>{{if .Busy}}Merging…{{else}}Merge files{{end}}</button>
  <button id="reset">Reset</button>
</p>

{{with .Result}}
<p id="result"><a id="download" href="/w/{{$.ID}}/download">Download {{.Filename}}</a></p>
{{end}}

<script>
(function () {
  const id = document.body.dataset.workspace;
  const api = "/api/workspaces/" + id;
  const reload = () => window.location.reload();

  function send(files, source) {
    const form = new FormData();
    for (const f of files) form.append("files", f);
    form.append("source", source);
    fetch(api + "/files", { method: "POST", body: form }).finally(reload);
  }

  const drop = document.getElementById("drop");
  const picker = document.getElementById("picker");
  drop.addEventListener("click", () => picker.click());
  drop.addEventListener("dragover", (e) => { e.preventDefault(); drop.classList.add("over"); });
  drop.addEventListener("dragleave", () => drop.classList.remove("over"));
  drop.addEventListener("drop", (e) => {
    e.preventDefault();
    drop.classList.remove("over");
    send(e.dataTransfer.files, "drop");
  });
  picker.addEventListener("change", () => send(picker.files, "picker"));

  document.querySelectorAll("#files button").forEach((btn) => {
    btn.addEventListener("click", () => {
      const index = Number(btn.closest("li").dataset.index);
      const action = btn.dataset.action;
      if (action === "remove") {
        fetch(api + "/files/" + encodeURIComponent(btn.dataset.name), { method: "DELETE" }).finally(reload);
        return;
      }
      const to = action === "up" ? index - 1 : index + 1;
      fetch(api + "/reorder", {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        body: JSON.stringify({ from: index, to: to }),
      }).finally(reload);
    });
  });

  const merge = document.getElementById("merge");
  merge.addEventListener("click", () => {
    merge.disabled = true;
    merge.textContent = "Merging…";
    fetch(api + "/merge", { method: "POST" }).finally(reload);
  });
  document.getElementById("reset").addEventListener("click", () => {
    fetch(api + "/reset", { method: "POST" }).finally(reload);
  });

  const download = document.getElementById("download");
  if (download) {
    download.addEventListener("click", () => setTimeout(reload, 1000));
  }
})();
</script>
</body>
</html>
`))
