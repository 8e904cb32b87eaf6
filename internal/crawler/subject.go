package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/langshake/shake-proof/internal/model"
)

// subjectFields are the record fields that name the page a record describes.
var subjectFields = []string{"url", "@id"}

// SubjectURL returns the page URL shared by every record that declares one.
// Fragments are stripped, so "https://a/b#article" describes "https://a/b".
//
// Records that disagree yield ModuleSubjectUrlInconsistent. A record whose
// "url" and "@id" name different pages is reported the same way: neither
// field takes precedence. Records without either field are ignored, and an
// empty string is returned when no record declares a subject.
func SubjectURL(records []model.Record) (string, error) {
	subject := ""
	for i, rec := range records {
		own := ""
		for _, field := range subjectFields {
			s, ok := rec[field].(string)
			if !ok {
				continue
			}
			u := normalizeSubject(s)
			if u == "" {
				continue
			}
			if own != "" && own != u {
				return "", model.NewBenchError(model.ModuleSubjectUrlInconsistent, "",
					fmt.Sprintf("record %d names two subjects: %q and %q", i, own, u), nil)
			}
			own = u
		}
		if own == "" {
			continue
		}
		if subject != "" && subject != own {
			return "", model.NewBenchError(model.ModuleSubjectUrlInconsistent, "",
				fmt.Sprintf("records disagree on subject: %q and %q", subject, own), nil)
		}
		subject = own
	}
	return subject, nil
}

// normalizeSubject strips the fragment of an absolute http(s) URL. Other
// identifiers, such as blank nodes, return "".
func normalizeSubject(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
