package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/status"
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
	"celsius": func(v *float32) string {
		if v == nil {
			return "fault"
		}
		return fmt.Sprintf("%.2f °C", *v)
	},
	"mean": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f °C", *v)
	},
	"iso": func(secs uint32) string {
		return logic.FormatDuration(secs)
	},
	"alarmClass": func(on bool) string {
		if on {
			return "alarm"
		}
		return "ok"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Fridge Monitor{{if .Config.DeviceID}} - {{.Config.DeviceID}}{{end}}</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; }
.alarm { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Fridge Monitor{{if .Config.DeviceID}} <small>{{.Config.DeviceID}}</small>{{end}}</h1>

<h2>Temperature</h2>
<table>
<tr><th>Vaccine</th><td>{{if .HasView}}{{celsius .View.Vaccine}}{{else}}-{{end}}</td></tr>
<tr><th>Ambient</th><td>{{if .HasView}}{{celsius .View.Ambient}}{{else}}-{{end}}</td></tr>
<tr><th>State</th><td class="{{if .HasView}}{{alarmClass (or .View.Alarms.TempHigh .View.Alarms.TempLow)}}{{else}}unknown{{end}}">{{.TemperatureState}}</td></tr>
</table>

<h2>Inputs</h2>
<table>
<tr><th>Door</th><td class="{{alarmClass .View.Alarms.Door}}">{{.DoorState}}{{if .View.DoorOpen}} for {{iso .View.DoorOpenSeconds}}{{end}}</td></tr>
<tr><th>Power</th><td class="{{alarmClass .View.Alarms.Power}}">{{.PowerState}}{{if and .HasView (not .View.PowerOn)}} for {{iso .View.PowerOffSeconds}}{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

{{with .Period}}<h2>Current Period</h2>
<table>
<tr><th>Since</th><td>{{.Start}}</td></tr>
<tr><th>Vaccine mean</th><td>{{mean .VaccineMean}}</td></tr>
<tr><th>Door openings</th><td>{{.DoorCount}} ({{.DoorOpen}})</td></tr>
<tr><th>Power available</th><td>{{.PowerAvailable}}</td></tr>
<tr><th>High / low alarm</th><td>{{.HighAlarm}} / {{.LowAlarm}}</td></tr>
</table>{{end}}

{{with .LastRecord}}<h2>Last Record</h2>
<table>
<tr><th>Period</th><td>{{.Start}} to {{.End}}</td></tr>
<tr><th>Vaccine mean</th><td>{{mean .VaccineMean}}</td></tr>
<tr><th>Door openings</th><td>{{.DoorCount}} ({{.DoorOpen}})</td></tr>
<tr><th>Power available</th><td>{{.PowerAvailable}}</td></tr>
</table>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .MQTTBuffered}} ({{.MQTTBuffered}} buffered){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Messages</th><td>{{.View.Processed}} processed, {{.View.Rejected}} rejected</td></tr>
<tr><th>Events</th><td>door {{.Counts.DoorOpened}}/{{.Counts.DoorClosed}}, power {{.Counts.PowerOn}}/{{.Counts.PowerOff}}</td></tr>
<tr><th>Poll / sample</th><td>{{.Config.PollMs}}ms / {{.Config.SampleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a>{{if .Store}} · <a href="/records.json">records</a> · <a href="/daily.json">today</a> · <a href="/records.xlsx">xlsx</a>{{end}}</p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, store bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		Period     *status.PeriodJSON
		LastRecord *status.PeriodJSON
		Store      bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Store:    store,
	}
	if snap.HasView {
		data.Period = status.PeriodFromRecord(snap.View.Partial)
	}
	if snap.View.LastRecord != nil {
		data.LastRecord = status.PeriodFromRecord(*snap.View.LastRecord)
	}
	indexTmpl.Execute(w, data)
}
