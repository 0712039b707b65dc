package render

import "html/template"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

var funcs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
}

var overlayTmpl = template.Must(template.New("overlay").Funcs(funcs).Parse(`<svg width="{{.Size.Width}}" height="{{.Size.Height}}" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <style>
      .title { font-family: Arial, sans-serif; font-size: 14px; font-weight: bold; fill: white; }
      .info { font-family: Arial, sans-serif; font-size: 10px; fill: white; }
      .marker-text { font-family: Arial, sans-serif; font-size: 8px; font-weight: bold; fill: white; }
    </style>
  </defs>
  <rect x="10" y="10" width="500" height="100" fill="rgba(0,0,0,0.8)" rx="5"/>
  <text x="20" y="30" class="title">Border Cloud Detection (3-Color System)</text>
  <text x="20" y="50" class="info">RGB Threshold: {{.Threshold}} | Red dominance: {{.RedDominance}}</text>
  <text x="20" y="65" class="info">Clouds: {{.Summary.Cloudy}} | Clear: {{.Summary.Clear}} | City Lights: {{.Summary.CityLights}}</text>
  <text x="20" y="80" class="info">Total: {{.Summary.Total}} | Timestamp: {{.Timestamp}}</text>
  <circle cx="30" cy="95" r="6" fill="{{.Style.Cloudy.Fill}}" stroke="{{.Style.Cloudy.Stroke}}" stroke-width="2"/>
  <text x="45" y="100" class="info">Clouds</text>
  <circle cx="120" cy="95" r="6" fill="{{.Style.Clear.Fill}}" stroke="{{.Style.Clear.Stroke}}" stroke-width="2"/>
  <text x="135" y="100" class="info">Clear</text>
  <circle cx="200" cy="95" r="6" fill="{{.Style.CityLight.Fill}}" stroke="{{.Style.CityLight.Stroke}}" stroke-width="2"/>
  <text x="215" y="100" class="info">City Lights</text>
{{- range .Markers}}
  <circle cx="{{.X}}" cy="{{.Y}}" r="{{$.Style.MarkerSize}}" fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="3" opacity="0.9">
    <title>{{.Name}} - {{.Status}} ({{.Confidence}}%)
Location: {{.Lat}}, {{.Lon}}
Analysis: {{.Analysis}}</title>
  </circle>
  <text x="{{.X}}" y="{{add .Y 3}}" text-anchor="middle" class="marker-text">{{.Label}}</text>
{{- end}}
</svg>
`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Border Cloud Status - {{.Timestamp}}</title>
    <style>
        body { margin: 0; padding: 20px; background: #1a1a1a; color: white; font-family: Arial, sans-serif; }
        .container { max-width: 1200px; margin: 0 auto; }
        .header { text-align: center; margin-bottom: 20px; }
        .stats { display: flex; gap: 20px; justify-content: center; margin: 20px 0; }
        .stat { background: rgba(255,255,255,0.1); padding: 15px 25px; border-radius: 10px; text-align: center; }
        .stat-number { font-size: 2em; font-weight: bold; }
        .total .stat-number { color: #ffa502; }
        .image-container { position: relative; text-align: center; margin: 20px 0; }
        .satellite-image { max-width: 100%; border: 2px solid #333; border-radius: 8px; }
        .overlay { position: absolute; top: 2px; left: 50%; transform: translateX(-50%); pointer-events: none; }
        .method-info { background: rgba(0,0,0,0.8); padding: 20px; border-radius: 10px; margin: 20px 0; }
        .cloud-list { padding: 20px; border-radius: 10px; margin: 20px 0; }
        .cloud-item { background: rgba(255,255,255,0.05); padding: 10px; margin: 10px 0; border-radius: 5px; }
        {{.CSS}}
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Border Cloud Detection Status</h1>
            <p>{{.Generated}}</p>
        </div>
        <div class="stats">
            <div class="stat total"><div class="stat-number">{{.Summary.Total}}</div><div>Total Crossings</div></div>
            <div class="stat cloudy"><div class="stat-number">{{.Summary.Cloudy}}</div><div>Clouds</div></div>
            <div class="stat clear"><div class="stat-number">{{.Summary.Clear}}</div><div>Clear</div></div>
            <div class="stat citylight"><div class="stat-number">{{.Summary.CityLights}}</div><div>City Lights</div></div>
        </div>
        <div class="method-info">
            <p><strong>RGB Threshold:</strong> {{.Threshold}} on every channel</p>
            <p><strong>City Light Detection:</strong> Red dominance threshold: {{.RedDominance}}</p>
            <p><strong>Average confidence:</strong> {{.Summary.AverageConfidence}}%</p>
        </div>
        <div class="image-container">
            <img src="{{.ImageFile}}" alt="Satellite Image" class="satellite-image">
            <svg class="overlay" width="{{.Size.Width}}" height="{{.Size.Height}}">
{{- range .Markers}}
                <circle cx="{{.X}}" cy="{{.Y}}" r="{{$.Style.MarkerSize}}" fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="3" opacity="0.9"><title>{{.Name}} - {{.Status}} ({{.Confidence}}%)</title></circle>
                <text x="{{.X}}" y="{{add .Y 3}}" text-anchor="middle" class="marker-text">{{.Label}}</text>
{{- end}}
            </svg>
        </div>
{{- if .Cloudy}}
        <div class="cloud-list cloudy-list">
            <h3>Detected Cloud Locations</h3>
{{- range .Cloudy}}
            <div class="cloud-item"><strong>{{.Name}}</strong>{{with .State}}, {{.}}{{end}}<br><small>Confidence: {{.Confidence}}% | {{.Analysis}}</small></div>
{{- end}}
        </div>
{{- end}}
{{- if .CityLights}}
        <div class="cloud-list citylight-list">
            <h3>Detected City Light Locations</h3>
{{- range .CityLights}}
            <div class="cloud-item"><strong>{{.Name}}</strong>{{with .State}}, {{.}}{{end}}<br><small>Confidence: {{.Confidence}}% | {{.Analysis}}</small></div>
{{- end}}
        </div>
{{- end}}
{{- if .Summary.Clear}}
        <div class="cloud-list clear-list">
            <h3>Clear Conditions</h3>
            <p>{{.Summary.Clear}} locations with clear skies.</p>
        </div>
{{- end}}
{{- if and (not .Cloudy) (not .CityLights)}}
        <div class="cloud-list">
            <h3>All Clear</h3>
            <p>No significant cloud activity or city lights detected.</p>
        </div>
{{- end}}
    </div>
</body>
</html>
`))
