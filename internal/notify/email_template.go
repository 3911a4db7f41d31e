package notify

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Update: {{.Label}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 640px;
      margin: 0 auto;
      background: #ffffff;
      border-radius: 8px;
      border: 1px solid #e5e7eb;
      overflow: hidden;
    }

    .header {
      padding: 20px 24px;
      background: #1f2937;
      color: #ffffff;
    }

    .label {
      font-size: 20px;
      font-weight: 700;
    }

    .section {
      padding: 16px 24px;
      border-top: 1px solid #f3f4f6;
    }

    .result-title {
      font-size: 15px;
      font-weight: 600;
      margin-bottom: 4px;
    }

    .snippet {
      background: #f9fafb;
      border-left: 3px solid #1f2937;
      padding: 8px 12px;
      font-size: 13px;
      color: #374151;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
      background: #f9fafb;
      border-top: 1px solid #f3f4f6;
    }

    a {
      color: #0b3d91;
      text-decoration: none;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <div>New relevant information found for your event</div>
      <div class="label">{{.Label}}</div>
    </div>

    {{range .Results}}
    <div class="section">
      <div class="result-title"><a href="{{.Link}}" target="_blank" rel="noopener">{{.Title}}</a></div>
      {{if .Snippet}}<div class="snippet">{{.Snippet}}</div>{{end}}
    </div>
    {{end}}

    <div class="footer">{{.Footer}}</div>
  </div>
</body>
</html>`
