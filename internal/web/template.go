package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/trv-controller/internal/status"
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
	"tempC": func(c16 int16) string {
		return fmt.Sprintf("%.2f", float64(c16)/16)
	},
	"modeOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>TRV Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
form { display: inline; }
button { font-family: monospace; margin-right: 4px; }
</style>
</head>
<body>
<h1>TRV Controller</h1>

<h2>Valve</h2>
<table>
<tr><th>Mode</th><td class="{{if eq (modeOrUnknown .Valve.Mode) "FROST"}}off{{else if eq (modeOrUnknown .Valve.Mode) "UNKNOWN"}}unknown{{else}}on{{end}}">{{modeOrUnknown .Valve.Mode}}</td></tr>
<tr><th>Target</th><td>{{.Valve.TargetC}}&deg;C</td></tr>
<tr><th>Temperature</th><td>{{tempC .Valve.TempC16}}&deg;C{{if .Valve.Filtering}} (filtered){{end}}</td></tr>
<tr><th>Valve Open</th><td>{{.Valve.PercentOpen}}%</td></tr>
<tr><th>Calling For Heat</th><td class="{{if .Valve.CallingForHeat}}on{{else}}off{{end}}">{{if .Valve.CallingForHeat}}yes{{else}}no{{end}}</td></tr>
<tr><th>Valve Travel</th><td>{{.Valve.CumulativeMove}}%</td></tr>
</table>

<form method="post" action="/api/mode"><button name="mode" value="warm">WARM</button><button name="mode" value="frost">FROST</button><button name="mode" value="bake">BAKE</button></form>

<h2>Room</h2>
<table>
<tr><th>Occupancy</th><td>{{.Room.OccupancyPC}}%</td></tr>
<tr><th>Vacant</th><td>{{.Room.VacancyHours}}h</td></tr>
<tr><th>Light</th><td>{{if .Room.RoomLit}}lit{{else}}dark ({{.Room.DarkMinutes}}m){{end}}</td></tr>
{{if .Room.RHValid}}<tr><th>Humidity</th><td>{{.Room.RHPC}}%</td></tr>{{end}}
{{if .Room.SupplyMV}}<tr><th>Supply</th><td>{{.Room.SupplyMV}}mV</td></tr>{{end}}
</table>

{{if .Config.HubEnabled}}<h2>Boiler Hub</h2>
<table>
<tr><th>Boiler</th><td class="{{if .Hub.BoilerOn}}on{{else}}off{{end}}">{{if .Hub.BoilerOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Last Remote Call</th><td>{{.Hub.MinsSinceLastCall}}m ago</td></tr>
</table>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Node</th><td>{{.NodeID}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Store</th><td>{{.Config.StorePath}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
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
