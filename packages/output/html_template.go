package output

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root { --passed: #22c55e; --failed: #ef4444; --error: #f97316; --skipped: #eab308; --muted: #6b7280; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f9fafb; color: #111827; }
  header { background: #111827; color: #fff; padding: 24px 32px; }
  header h1 { margin: 0 0 4px; font-size: 22px; }
  header .meta { color: #9ca3af; font-size: 13px; }
  main { padding: 24px 32px; }
  .cards { display: flex; gap: 16px; flex-wrap: wrap; margin-bottom: 16px; }
  .card { background: #fff; border-radius: 8px; padding: 16px 20px; min-width: 120px; box-shadow: 0 1px 2px rgba(0,0,0,.06); }
  .card .n { font-size: 26px; font-weight: 600; }
  .card.passed .n { color: var(--passed); }
  .card.failed .n { color: var(--failed); }
  .card.error .n { color: var(--error); }
  .card.skipped .n { color: var(--skipped); }
  .bar { display: flex; height: 10px; border-radius: 5px; overflow: hidden; background: #e5e7eb; margin-bottom: 24px; }
  .bar .passed { background: var(--passed); }
  .bar .failed { background: var(--failed); }
  .bar .error { background: var(--error); }
  .bar .skipped { background: var(--skipped); }
  .scenario { background: #fff; border-radius: 8px; margin-bottom: 16px; box-shadow: 0 1px 2px rgba(0,0,0,.06); border-left: 4px solid var(--muted); }
  .scenario.passed { border-left-color: var(--passed); }
  .scenario.failed { border-left-color: var(--failed); }
  .scenario.error { border-left-color: var(--error); }
  .scenario.skipped { border-left-color: var(--skipped); }
  .scenario h2 { font-size: 16px; margin: 0; padding: 12px 16px; border-bottom: 1px solid #f3f4f6; }
  details { padding: 8px 16px; border-bottom: 1px solid #f3f4f6; }
  summary { cursor: pointer; font-size: 14px; }
  .badge { display: inline-block; font-size: 11px; font-weight: 600; text-transform: uppercase; padding: 2px 6px; border-radius: 4px; color: #fff; margin-right: 6px; }
  .badge.passed { background: var(--passed); }
  .badge.failed { background: var(--failed); }
  .badge.error { background: var(--error); }
  .badge.skipped { background: var(--skipped); }
  .dur { color: var(--muted); font-size: 12px; margin-left: 6px; }
  pre { background: #f3f4f6; padding: 8px; border-radius: 4px; overflow-x: auto; font-size: 12px; }
  table { border-collapse: collapse; font-size: 12px; margin: 6px 0; }
  td, th { border: 1px solid #e5e7eb; padding: 4px 8px; text-align: left; vertical-align: top; }
  .note { color: var(--muted); font-size: 13px; }
  .warn { color: var(--failed); }
  footer { color: var(--muted); font-size: 12px; padding: 16px 32px; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <div class="meta">Run {{.RunID}} &middot; {{.Time}} &middot; {{.Duration}}ms &middot; pass rate {{printf "%.1f" .PassRate}}%{{if .Cancelled}} &middot; cancelled{{end}}</div>
</header>
<main>
  <div class="cards">
    <div class="card"><div class="n">{{.Summary.Total}}</div>total</div>
    <div class="card passed"><div class="n">{{.Summary.Passed}}</div>passed</div>
    <div class="card failed"><div class="n">{{.Summary.Failed}}</div>failed</div>
    <div class="card error"><div class="n">{{.Summary.Errored}}</div>errors</div>
    <div class="card skipped"><div class="n">{{.Summary.Skipped}}</div>skipped</div>
  </div>
  <div class="bar">
    <div class="passed" style="width: {{printf "%.2f" .PassedPercent}}%"></div>
    <div class="failed" style="width: {{printf "%.2f" .FailedPercent}}%"></div>
    <div class="error" style="width: {{printf "%.2f" .ErroredPercent}}%"></div>
    <div class="skipped" style="width: {{printf "%.2f" .SkippedPercent}}%"></div>
  </div>
  {{if .ConfigErrors}}
  <div class="scenario error">
    <h2>Invalid cases</h2>
    <ul>{{range .ConfigErrors}}<li class="warn">{{.}}</li>{{end}}</ul>
  </div>
  {{end}}
  {{range .Scenarios}}
  <div class="scenario {{.StatusClass}}">
    <h2><span class="badge {{.StatusClass}}">{{.StatusClass}}</span>{{.Name}}<span class="dur">{{.Duration}}ms</span></h2>
    {{range .Steps}}
    <details{{if or (eq .StatusClass "failed") (eq .StatusClass "error")}} open{{end}}>
      <summary><span class="badge {{.StatusClass}}">{{.StatusClass}}</span>{{.Name}}<span class="dur">{{.Duration}}ms{{if .Retries}}, {{.Retries}} retries{{end}}</span></summary>
      {{if .SkipReason}}<p class="note">{{.SkipReason}}</p>{{end}}
      {{if .Error}}<p class="warn">{{.Error}}</p>{{end}}
      {{with .Request}}
      <p><strong>{{.Method}}</strong> {{.URL}}</p>
      {{if .Headers}}<table>{{range $k, $v := .Headers}}<tr><th>{{$k}}</th><td>{{$v}}</td></tr>{{end}}</table>{{end}}
      {{if .Body}}<pre>{{.Body}}</pre>{{end}}
      {{end}}
      {{with .Response}}
      <p>Status <strong>{{.StatusCode}}</strong><span class="dur">{{.Duration}}ms</span></p>
      <pre>{{.Body}}</pre>
      {{end}}
      {{if .Diffs}}
      <table>
        <tr><th>Path</th><th>Expected</th><th>Actual</th><th>Message</th></tr>
        {{range .Diffs}}<tr><td>{{.Path}}</td><td>{{.ExpectedStr}}</td><td>{{.ActualStr}}</td><td>{{.Message}}</td></tr>{{end}}
      </table>
      {{end}}
      {{if .Extracted}}
      <table>
        <tr><th>Variable</th><th>Value</th></tr>
        {{range .Extracted}}<tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>{{end}}
      </table>
      {{end}}
    </details>
    {{end}}
  </div>
  {{end}}
</main>
<footer>Generated by hitcase {{.Version}}</footer>
</body>
</html>
`
