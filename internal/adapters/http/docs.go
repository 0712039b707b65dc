package http

import (
	"context"
	"log/slog"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// DefaultSpecPath is where the OpenAPI document lives relative to the working directory.
const DefaultSpecPath = "api/openapi.yaml"

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Cumulus API · Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout',
    });
  </script>
</body>
</html>`

// apiDoc is the parsed OpenAPI document in both wire forms.
type apiDoc struct {
	yaml []byte
	json []byte
}

// loadAPIDoc reads and validates the document once at startup.
func loadAPIDoc(path string) (*apiDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	js, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &apiDoc{yaml: data, json: js}, nil
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml and /docs/openapi.json. A missing or invalid document
// leaves the UI up and the document routes answering 404.
func SetupDocs(app *fiber.App, deps *Dependencies) {
	path := deps.SpecPath
	if path == "" {
		path = DefaultSpecPath
	}
	doc, err := loadAPIDoc(path)
	if err != nil {
		slog.Debug("api docs unavailable", "path", path, "error", err)
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "openapi document not available")
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(doc.yaml)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "openapi document not available")
		}
		c.Set("Content-Type", fiber.MIMEApplicationJSON)
		return c.Send(doc.json)
	})
}
