// Package roles derives a portal role and department from an institutional
// email address.
package roles

import (
	"regexp"
	"strings"

	"complaintdesk/backend/internal/models"
)

// Classification is the outcome of classifying an email.
type Classification struct {
	Role       models.Role       `json:"role"`
	Department models.Department `json:"department"`
}

type keywordRule struct {
	keywords   []string
	department models.Department
}

// Keywords match anywhere in the local part. Order matters: the first
// matching rule wins.
var keywordRules = []keywordRule{
	{[]string{"warden"}, models.DepartmentHostel},
	{[]string{"mess", "food"}, models.DepartmentMess},
	{[]string{"hod", "dean", "faculty"}, models.DepartmentAcademic},
	{[]string{"network", "wifi"}, models.DepartmentInternet},
	{[]string{"estate", "civil", "electrical", "maintenance"}, models.DepartmentInfrastructure},
}

func (r keywordRule) matches(local string) bool {
	for _, k := range r.keywords {
		if strings.Contains(local, k) {
			return true
		}
	}
	return false
}

// Classifier is a pure function of its configuration; it is safe for
// concurrent use.
type Classifier struct {
	domain      string
	superAdmins map[string]struct{}
	vip         map[string]models.Department
	student     *regexp.Regexp
}

// NewClassifier builds a classifier for domain. vipMailboxes maps a mailbox
// (local part or full address) to a department name; unknown department
// names fall back to "other".
func NewClassifier(domain string, superAdmins []string, vipMailboxes map[string]string) *Classifier {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	c := &Classifier{
		domain:      domain,
		superAdmins: make(map[string]struct{}, len(superAdmins)),
		vip:         make(map[string]models.Department, len(vipMailboxes)),
		// admission year, program code, branch code, roll number
		student: regexp.MustCompile(`^20[0-9]{2}[a-z]{2}[a-z]{2}[0-9]{3}@` + regexp.QuoteMeta(domain) + `$`),
	}
	for _, e := range superAdmins {
		c.superAdmins[Normalize(e)] = struct{}{}
	}
	for mailbox, dept := range vipMailboxes {
		addr := Normalize(mailbox)
		if !strings.Contains(addr, "@") {
			addr += "@" + domain
		}
		d, ok := models.ParseDepartment(dept)
		if !ok || d == models.DepartmentNone {
			d = models.DepartmentOther
		}
		c.vip[addr] = d
	}
	return c
}

// Normalize lower-cases and trims an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InDomain reports whether email belongs to the institution. Classify assumes
// callers have already checked this.
func (c *Classifier) InDomain(email string) bool {
	e := Normalize(email)
	at := strings.LastIndex(e, "@")
	return at > 0 && e[at+1:] == c.domain
}

// Classify returns the role and department for an institutional email.
func (c *Classifier) Classify(email string) Classification {
	e := Normalize(email)

	if _, ok := c.superAdmins[e]; ok {
		return Classification{Role: models.RoleSuperAdmin, Department: models.DepartmentAll}
	}
	if d, ok := c.vip[e]; ok {
		return Classification{Role: models.RoleAdmin, Department: d}
	}
	if c.student.MatchString(e) {
		return Classification{Role: models.RoleStudent, Department: models.DepartmentNone}
	}

	local := e
	if at := strings.LastIndex(e, "@"); at >= 0 {
		local = e[:at]
	}
	for _, rule := range keywordRules {
		if rule.matches(local) {
			return Classification{Role: models.RoleAdmin, Department: rule.department}
		}
	}
	return Classification{Role: models.RoleAdmin, Department: models.DepartmentOther}
}
