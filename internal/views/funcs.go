package views

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DayNames maps n % 7 to a weekday, Sunday first.
var DayNames = [7]string{"Domingo", "Segunda-feira", "Terça-feira", "Quarta-feira", "Quinta-feira", "Sexta-feira", "Sábado"}

// dateLayouts are the zone-less forms; they are read as wall time in loc.
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Funcs returns the template helpers. Dates are shown in loc.
func Funcs(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.UTC
	}
	return template.FuncMap{
		"price":    Price,
		"date":     func(v any) string { return FormatDate(v, loc) },
		"dayName":  DayName,
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"pageURL":  PageURL,
		"checked": func(on bool) template.HTMLAttr {
			if on {
				return "checked"
			}
			return ""
		},
		"selected": func(a, b string) template.HTMLAttr {
			if a == b {
				return "selected"
			}
			return ""
		},
		"join": strings.Join,
	}
}

// Price renders an amount with two decimals and the euro sign: "29.90€".
func Price(v any) string {
	var d decimal.Decimal
	switch p := v.(type) {
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return p
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case decimal.Decimal:
		d = p
	default:
		return fmt.Sprint(v)
	}
	return d.StringFixed(2) + "€"
}

// FormatDate renders an API timestamp as dd/mm/yyyy in loc. Unparseable
// values are returned unchanged.
func FormatDate(v any, loc *time.Location) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.In(loc).Format("02/01/2006")
	case string:
		s := strings.TrimSpace(t)
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.In(loc).Format("02/01/2006")
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed.Format("02/01/2006")
			}
		}
		return s
	}
	return fmt.Sprint(v)
}

// DayName maps a day number (int or numeric string) to its weekday name.
func DayName(v any) string {
	var n int
	switch d := v.(type) {
	case int:
		n = d
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return d
		}
		n = parsed
	default:
		return fmt.Sprint(v)
	}
	return DayNames[((n%7)+7)%7]
}

// PageURL sets the page query parameter of target, keeping the rest.
func PageURL(target string, page int) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
