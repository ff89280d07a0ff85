package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/phasecut/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	// percent renders a duty value (thousandths) as a percentage.
	"percent": func(duty uint32) string {
		return fmt.Sprintf("%d.%d%%", duty/10, duty%10)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>{{.Config.Device}} phase control</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>{{.Config.Device}} phase control</h1>

<h2>Output</h2>
<table>
<tr><th>Duty</th><td id="duty" class="{{if .Engine.Duty}}on{{else}}off{{end}}">{{.Engine.Duty}} ({{percent .Engine.Duty}})</td></tr>
<tr><th>Half-cycles</th><td id="loops">{{.Engine.Loops}}</td></tr>
<tr><th>Overruns</th><td class="{{if .Engine.Overruns}}warn{{end}}">{{.Engine.Overruns}}</td></tr>
<tr><th>Faults</th><td class="{{if .Engine.Faults}}warn{{end}}">{{.Engine.Faults}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}">{{if .MQTT.State}}{{.MQTT.State}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Connections</th><td>{{.MQTT.Connects}}</td></tr>
<tr><th>Retries</th><td>{{.MQTT.Backoffs}}</td></tr>
<tr><th>Telemetry sent</th><td>{{.MQTT.Sent}}</td></tr>
<tr><th>Commands</th><td>{{.Commands}} ({{.Rejected}} rejected)</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Zero-cross pin</th><td>{{.Config.ZeroCrossPin}}</td></tr>
<tr><th>Output pins</th><td>{{range $i, $p := .Config.OutputPins}}{{if $i}}, {{end}}{{$p}}{{end}}</td></tr>
<tr><th>Half-cycle</th><td>{{.Config.HalfCycleUs}}us</td></tr>
<tr><th>Timer tick</th><td>{{.Config.TickNs}}ns</td></tr>
<tr><th>Time server</th><td>{{.Config.TimeServer}}</td></tr>
<tr><th>Time zone</th><td>{{.Config.Timezone}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
