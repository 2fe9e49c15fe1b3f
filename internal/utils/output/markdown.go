package output

import (
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/quake/internal/utils/url"
	"github.com/law-makers/quake/pkg/models"
)

// BulletinMarkdown renders the structured detail followed by the bulletin
// page converted to Markdown. Relative links and images resolve against
// the bulletin URL.
func BulletinMarkdown(d *models.EarthquakeDetail, pageHTML string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}

			resolved := urlutil.ResolveURL(d.URL, href)
			title, hasTitle := selec.Attr("title")
			var titlePart string
			if hasTitle {
				titlePart = fmt.Sprintf(" %q", title)
			}
			str := fmt.Sprintf("[%s](%s)%s", strings.TrimSpace(selec.Text()), resolved, titlePart)
			return &str
		},
	}, md.Rule{
		Filter: []string{"img"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			src, exists := selec.Attr("src")
			if !exists {
				return nil
			}
			alt, _ := selec.Attr("alt")
			str := fmt.Sprintf("![%s](%s)", alt, urlutil.ResolveURL(d.URL, src))
			return &str
		},
	})

	cleaned, err := CleanHTML(pageHTML)
	if err != nil {
		return "", err
	}

	body, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Earthquake bulletin\n\n")
	fmt.Fprintf(&sb, "Source: <%s>\n\n", d.URL)

	row := func(label string, v *string) {
		if v != nil {
			fmt.Fprintf(&sb, "| %s | %s |\n", label, *v)
		}
	}
	sb.WriteString("| Field | Value |\n| --- | --- |\n")
	row("Date/Time", d.DateTime)
	row("Magnitude", d.Magnitude)
	row("Depth (km)", d.Depth)
	row("Latitude", d.Latitude)
	row("Longitude", d.Longitude)
	if d.Epicenter != nil {
		place := strings.TrimSpace(strings.Join([]string{d.Epicenter.Distance, d.Epicenter.Direction, d.Epicenter.Place}, " "))
		row("Epicenter", &place)
	}
	row("Expecting damage", d.ExpectingDamage)
	row("Expecting aftershocks", d.ExpectingAftershocks)
	row("Issued on", d.IssuedOn)
	row("Prepared by", d.PreparedBy)

	sb.WriteString("\n## Bulletin\n\n")
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteString("\n")

	return sb.String(), nil
}

// SaveMarkdown writes BulletinMarkdown to filepath
func SaveMarkdown(d *models.EarthquakeDetail, pageHTML, filepath string) error {
	content, err := BulletinMarkdown(d, pageHTML)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, []byte(content), 0644)
}
