package notify

import (
	"bytes"
	"html/template"
	"time"

	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/domain"
)

// Telegram HTML parse mode understands <b>, <i>, <code>; everything the
// customer typed goes through html/template escaping.
var orderTemplate = template.Must(template.New("order").Parse(
	`<b>New order #{{.Order.ID}}</b>
Ref: <code>{{.Order.Reference}}</code>
Date: {{.Date}}

<b>Customer:</b> {{if .Order.Name}}{{.Order.Name}}{{else}}-{{end}}
<b>Phone:</b> {{.Order.Phone}}
<b>Address:</b> {{if .Order.Address}}{{.Order.Address}}{{else}}-{{end}}
{{range .Lines}}
{{.Index}}. {{.Title}}
    {{.Count}} x {{.UnitPrice}} = {{.LineTotal}}
{{- end}}

<b>Total:</b> {{.Order.TotalPrice}}`))

type orderView struct {
	Order *domain.OrderUser
	Lines []checkout.DetailLine
	Date  string
}

// RenderOrder formats the staff message for a committed order.
func RenderOrder(order *domain.OrderUser, lines []checkout.DetailLine) (string, error) {
	created := order.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var buf bytes.Buffer
	err := orderTemplate.Execute(&buf, orderView{
		Order: order,
		Lines: lines,
		Date:  created.Format("2006-01-02 15:04"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
