package pricesync

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"steamtracker/internal/client"
)

const steamStoreURL = "https://store.steampowered.com/app/%d/"

var emailTemplate = template.Must(template.New("email").Parse(
	`<p>{{.Intro}}</p>
<ul>
{{- range .Items}}
<li><a href="{{.URL}}">{{.Name}}</a> is now {{.Price}} ({{.Discount}}% off on Steam!)</li>
{{- end}}
</ul>
<p>Happy gaming!</p>`))

type emailItem struct {
	Name     string
	URL      string
	Price    string
	Discount int
}

type emailData struct {
	Intro string
	Items []emailItem
}

func composeAlertEmail(to []string, fs []firing) (client.Email, error) {
	data := emailData{Intro: "Your price alerts were triggered:"}
	for _, f := range fs {
		data.Items = append(data.Items, emailItem{
			Name:     f.game.Name,
			URL:      fmt.Sprintf(steamStoreURL, f.game.AppID),
			Price:    formatPrice(f.price, f.game.Currency),
			Discount: f.discount,
		})
	}
	subject := "Price Alert: " + fs[0].game.Name
	if len(fs) > 1 {
		subject = fmt.Sprintf("Price Alerts: %d games on sale", len(fs))
	}
	return composeEmail(to, subject, data)
}

func composeDropEmail(to []string, d priceDrop) (client.Email, error) {
	data := emailData{
		Intro: fmt.Sprintf("A game on your watch list dropped from %s:", formatPrice(d.previous.FinalPrice, d.previous.Currency)),
		Items: []emailItem{{
			Name:     d.game.Name,
			URL:      fmt.Sprintf(steamStoreURL, d.game.AppID),
			Price:    formatPrice(d.price.FinalPrice, d.price.Currency),
			Discount: d.price.DiscountPercent,
		}},
	}
	return composeEmail(to, "Price Drop Alert: "+d.game.Name, data)
}

func composeEmail(to []string, subject string, data emailData) (client.Email, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return client.Email{}, errors.Wrapf(err, "error rendering email, subject: %s", subject)
	}
	text, err := htmlToText(buf.String())
	if err != nil {
		return client.Email{}, err
	}
	return client.Email{
		To:      to,
		Subject: subject,
		Text:    text,
		HTML:    buf.String(),
	}, nil
}

// htmlToText renders the text part of an email from its HTML part.
func htmlToText(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", errors.Wrap(err, "error parsing email html")
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if n.Data[0] == ' ' {
					b.WriteByte(' ')
				}
				b.WriteString(t)
				if n.Data[len(n.Data)-1] == ' ' {
					b.WriteByte(' ')
				}
			}
		case n.Type == html.ElementNode && n.Data == "li":
			b.WriteString("- ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "li", "ul", "br":
				b.WriteByte('\n')
			}
		}
	}
	walk(doc)

	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func formatPrice(p decimal.Decimal, currency string) string {
	switch currency {
	case "", "USD":
		return "$" + p.StringFixed(2)
	}
	return p.StringFixed(2) + " " + currency
}
