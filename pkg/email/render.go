package email

import (
	"fmt"
	"strings"
)

var (
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	linebreak = strings.NewReplacer("\r\n", "<br>", "\n", "<br>")
)

const documentShell = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div>%s</div>
  </body>
</html>
`

// RenderHTML converts a plain text body into an HTML document.
//
// Markup characters are escaped before line breaks become <br> tags.
func RenderHTML(text string) string {
	return fmt.Sprintf(documentShell, linebreak.Replace(escaper.Replace(text)))
}
