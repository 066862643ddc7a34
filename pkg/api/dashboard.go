package api

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/log"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// The dashboard is a single self-refreshing page, intentionally plain:
// no assets, no scripts, renders fine in a terminal browser.
const dashboardTpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8"/>
<meta http-equiv="refresh" content="2"/>
<title>OWP Pool Dashboard</title>
<style>
body{font-family:ui-sans-serif,system-ui,Segoe UI,Roboto,Arial;padding:16px}
table{border-collapse:collapse}
td,th{border:1px solid #ddd;padding:6px 8px}
th{background:#f6f6f6}
code{background:#f2f2f2;padding:2px 4px;border-radius:4px}
tr.offline{opacity:0.55}
tr.throttled{background:#fff4cc}
</style>
</head><body>
<h1>OWP Pool Dashboard</h1>
<p><b>Server time</b>: <code>{{iso .Now}}</code></p>

<h2>Counts</h2>
<table><tr><th>Status</th><th>Count</th></tr>
{{range $st := statusOrder}}<tr><td>{{$st}}</td><td>{{index $.Counts $st}}</td></tr>
{{end}}</table>

<h2>Repos</h2>
<table><tr><th>Repo</th><th>max_open_prs</th><th>area_locks</th><th>open_prs</th><th>throttled</th></tr>
{{range .Repos}}<tr {{if .Throttled}}class="throttled"{{end}}>
<td>{{.Repo.Repo}}</td><td>{{.Repo.MaxOpenPRs}}</td><td>{{onoff .Repo.AreaLocksEnabled}}</td><td>{{.OpenPRs}}</td><td>{{yesno .Throttled}}</td>
</tr>
{{end}}</table>

<h2>Workers</h2>
<table><tr><th>worker_id</th><th>name</th><th>online</th><th>skills</th><th>capacity</th><th>max_conc</th><th>status</th><th>last_heartbeat</th><th>load(pts/tasks)</th></tr>
{{range .Workers}}<tr {{if not .Online}}class="offline"{{end}}>
<td><code>{{.Worker.WorkerID}}</code></td><td>{{.Worker.Name}}</td><td>{{yesno .Online}}</td><td>{{join .Worker.Skills}}</td><td>{{.Worker.CapacityPoints}}</td><td>{{.Worker.MaxConcurrentTasks}}</td><td>{{.Worker.Status}}</td><td>{{isoPtr .Worker.LastHeartbeat}}</td><td>{{.UsedPoints}}/{{.UsedTasks}}</td>
</tr>
{{end}}</table>

<h2>Recent Tasks</h2>
<table><tr><th>task_id</th><th>repo</th><th>status</th><th>title</th><th>assignee</th><th>updated</th><th>area</th><th>artifact</th></tr>
{{range .Tasks}}<tr>
<td><code>{{.TaskID}}</code></td><td>{{.Repo}}</td><td>{{.Status}}</td><td>{{.Title}}</td><td><code>{{.AssignedWorkerID}}</code></td><td>{{iso .UpdatedAt}}</td><td>{{.Area}}</td><td>{{artifactRef .Artifact}}</td>
</tr>
{{end}}</table>

<h2>Recent Events</h2>
<table><tr><th>ts</th><th>type</th><th>actor</th><th>task</th><th>details</th></tr>
{{range .Events}}<tr>
<td>{{iso .TS}}</td><td>{{.Type}}</td><td><code>{{.ActorWorkerID}}</code></td><td><code>{{.TaskID}}</code></td><td><code>{{detailsJSON .Details}}</code></td>
</tr>
{{end}}</table>
</body></html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"iso": clock.FormatISO,
	"isoPtr": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return clock.FormatISO(*t)
	},
	"statusOrder": func() []types.TaskStatus {
		return []types.TaskStatus{
			types.TaskReady, types.TaskLeased, types.TaskInProgress,
			types.TaskBlocked, types.TaskPROpened, types.TaskMerged,
		}
	},
	"onoff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"join": func(s []string) string {
		return strings.Join(s, ",")
	},
	"artifactRef": func(a *types.TaskArtifact) string {
		if a == nil {
			return ""
		}
		if a.PRURL != "" {
			return a.PRURL
		}
		return a.CommitSHA
	},
	"detailsJSON": func(m map[string]any) string {
		if len(m) == 0 {
			return ""
		}
		buf, err := json.Marshal(m)
		if err != nil {
			return ""
		}
		return string(buf)
	},
}).Parse(dashboardTpl))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, d); err != nil {
		log.WithComponent("api").Error().Err(err).Msg("Failed to render dashboard")
	}
}
