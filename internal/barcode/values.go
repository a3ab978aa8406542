package barcode

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
)

// EmailType follows the vision SDK email type codes.
type EmailType int

const (
	EmailUnknown EmailType = 0
	EmailWork    EmailType = 1
	EmailHome    EmailType = 2
)

// PhoneType follows the vision SDK phone type codes.
type PhoneType int

const (
	PhoneUnknown PhoneType = 0
	PhoneWork    PhoneType = 1
	PhoneHome    PhoneType = 2
	PhoneFax     PhoneType = 3
	PhoneMobile  PhoneType = 4
)

// AddressType follows the vision SDK address type codes.
type AddressType int

const (
	AddressUnknown AddressType = 0
	AddressWork    AddressType = 1
	AddressHome    AddressType = 2
)

// WiFiEncryption follows the vision SDK encryption codes.
type WiFiEncryption int

const (
	WiFiOpen WiFiEncryption = 1
	WiFiWPA  WiFiEncryption = 2
	WiFiWEP  WiFiEncryption = 3
)

type Email struct {
	Address string
	Body    string
	Subject string
	Type    EmailType
}

type Phone struct {
	Number string
	Type   PhoneType
}

type SMS struct {
	Message     string
	PhoneNumber string
}

type URLBookmark struct {
	Title string
	URL   string
}

type WiFi struct {
	EncryptionType WiFiEncryption
	Password       string
	SSID           string
}

type GeoPoint struct {
	Lat float64
	Lng float64
}

type PersonName struct {
	First         string
	FormattedName string
	Last          string
	Middle        string
	Prefix        string
	Pronunciation string
	Suffix        string
}

type Address struct {
	AddressLines []string
	Type         AddressType
}

type ContactInfo struct {
	Addresses    []Address
	Emails       []Email
	Name         *PersonName
	Organization string
	Phones       []Phone
	Title        string
	URLs         []string
}

// CalendarDateTime is a calendar timestamp as written in the payload.
// Fields not present in the payload are -1.
type CalendarDateTime struct {
	Day      int
	Hours    int
	Minutes  int
	Month    int
	Seconds  int
	Year     int
	IsUTC    bool
	RawValue string
}

type CalendarEvent struct {
	Description string
	End         *CalendarDateTime
	Location    string
	Organizer   string
	Start       *CalendarDateTime
	Status      string
	Summary     string
}

type DriverLicense struct {
	AddressCity    string
	AddressState   string
	AddressStreet  string
	AddressZip     string
	BirthDate      string
	DocumentType   string
	ExpiryDate     string
	FirstName      string
	Gender         string
	IssueDate      string
	IssuingCountry string
	LastName       string
	LicenseNumber  string
	MiddleName     string
}

// ParseValue classifies a decoded payload. Content is nil for TEXT, ISBN,
// PRODUCT and UNKNOWN, whose data is the raw value itself.
func ParseValue(format Format, raw string) (ValueType, any) {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	switch {
	case trimmed == "":
		return ValueText, nil
	case strings.HasPrefix(lower, "wifi:"):
		if w, ok := parseWiFi(trimmed); ok {
			return ValueWiFi, w
		}
	case strings.HasPrefix(lower, "geo:"):
		if g, ok := parseGeo(trimmed); ok {
			return ValueGeo, g
		}
	case strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "matmsg:"), strings.HasPrefix(lower, "smtp:"):
		if e, ok := parseEmail(trimmed); ok {
			return ValueEmail, e
		}
	case strings.HasPrefix(lower, "tel:"):
		return ValuePhone, Phone{Number: trimmed[len("tel:"):], Type: PhoneUnknown}
	case strings.HasPrefix(lower, "sms:"), strings.HasPrefix(lower, "smsto:"), strings.HasPrefix(lower, "mms:"), strings.HasPrefix(lower, "mmsto:"):
		if s, ok := parseSMS(trimmed); ok {
			return ValueSMS, s
		}
	case strings.HasPrefix(lower, "mecard:"):
		if c, ok := parseMeCard(trimmed); ok {
			return ValueContactInfo, c
		}
	case strings.HasPrefix(lower, "begin:vcard"):
		if c, ok := parseVCard(trimmed); ok {
			return ValueContactInfo, c
		}
	case strings.HasPrefix(lower, "begin:vevent"), strings.HasPrefix(lower, "begin:vcalendar"):
		if ev, ok := parseVEvent(trimmed); ok {
			return ValueCalendarEvent, ev
		}
	case strings.HasPrefix(trimmed, "@"):
		if dl, ok := parseAAMVA(raw); ok {
			return ValueDriverLicense, dl
		}
	}

	if u, ok := parseURL(trimmed); ok {
		return ValueURL, u
	}
	if emailPattern.MatchString(trimmed) {
		return ValueEmail, Email{Address: trimmed, Type: EmailUnknown}
	}
	if isDigits(trimmed) {
		switch format {
		case FormatEAN13:
			if strings.HasPrefix(trimmed, "978") || strings.HasPrefix(trimmed, "979") {
				return ValueISBN, nil
			}
			return ValueProduct, nil
		case FormatEAN8, FormatUPCA, FormatUPCE:
			return ValueProduct, nil
		}
	}
	return ValueText, nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9@.!#$%&'*+\-/=?^_` + "`" + `{|}~]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitFields splits "K:v;K2:v2;;" style payloads honoring backslash escapes.
func splitFields(body string, sep byte) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			cur.WriteByte(body[i])
		case c == sep:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// keyedFields parses "PREFIX:K:v;K:v;;" into a multi-map keyed by upper-case K.
func keyedFields(raw string) map[string][]string {
	_, body, _ := strings.Cut(raw, ":")
	fields := map[string][]string{}
	for _, f := range splitFields(body, ';') {
		k, v, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		fields[k] = append(fields[k], v)
	}
	return fields
}

func first(m map[string][]string, key string) string {
	if v := m[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func parseWiFi(raw string) (WiFi, bool) {
	f := keyedFields(raw)
	ssid := first(f, "S")
	if ssid == "" {
		return WiFi{}, false
	}
	w := WiFi{SSID: ssid, Password: first(f, "P"), EncryptionType: WiFiOpen}
	switch strings.ToUpper(first(f, "T")) {
	case "WPA", "WPA2", "WPA3", "SAE":
		w.EncryptionType = WiFiWPA
	case "WEP":
		w.EncryptionType = WiFiWEP
	}
	return w, true
}

func parseGeo(raw string) (GeoPoint, bool) {
	body := raw[len("geo:"):]
	body, _, _ = strings.Cut(body, "?")
	parts := strings.Split(body, ",")
	if len(parts) < 2 {
		return GeoPoint{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return GeoPoint{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: lat, Lng: lng}, true
}

func parseEmail(raw string) (Email, bool) {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "mailto:"):
		addr, query, _ := strings.Cut(raw[len("mailto:"):], "?")
		addr, _ = url.PathUnescape(addr)
		e := Email{Address: addr, Type: EmailUnknown}
		if q, err := url.ParseQuery(query); err == nil {
			e.Subject = q.Get("subject")
			e.Body = q.Get("body")
			if e.Address == "" {
				e.Address = q.Get("to")
			}
		}
		return e, e.Address != ""
	case strings.HasPrefix(lower, "matmsg:"):
		f := keyedFields(raw)
		e := Email{Address: first(f, "TO"), Subject: first(f, "SUB"), Body: first(f, "BODY")}
		return e, e.Address != ""
	default:
		// SMTP:to:subject:body
		parts := strings.SplitN(raw[len("smtp:"):], ":", 3)
		e := Email{Address: parts[0]}
		if len(parts) > 1 {
			e.Subject = parts[1]
		}
		if len(parts) > 2 {
			e.Body = parts[2]
		}
		return e, e.Address != ""
	}
}

func parseSMS(raw string) (SMS, bool) {
	scheme, rest, _ := strings.Cut(raw, ":")
	if strings.HasSuffix(strings.ToLower(scheme), "to") {
		number, msg, _ := strings.Cut(rest, ":")
		return SMS{PhoneNumber: number, Message: msg}, number != ""
	}
	number, query, _ := strings.Cut(rest, "?")
	s := SMS{PhoneNumber: number}
	if q, err := url.ParseQuery(query); err == nil {
		s.Message = q.Get("body")
	}
	return s, number != ""
}

func parseURL(raw string) (URLBookmark, bool) {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "urlto:"):
		// URLTO:title:url
		rest := raw[len("urlto:"):]
		title, link, ok := strings.Cut(rest, ":")
		if !ok {
			return URLBookmark{}, false
		}
		return URLBookmark{Title: title, URL: link}, isHTTPURL(link)
	case strings.HasPrefix(lower, "mebkm:"):
		f := keyedFields(raw)
		link := first(f, "URL")
		return URLBookmark{Title: first(f, "TITLE"), URL: link}, link != ""
	case strings.HasPrefix(lower, "url:"):
		link := strings.TrimSpace(raw[len("url:"):])
		return URLBookmark{URL: link}, isHTTPURL(link)
	default:
		return URLBookmark{URL: raw}, isHTTPURL(raw) && !strings.ContainsAny(raw, " \t\n")
	}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func parseMeCard(raw string) (ContactInfo, bool) {
	f := keyedFields(raw)
	c := ContactInfo{
		Organization: first(f, "ORG"),
		Title:        first(f, "TITLE"),
		URLs:         f["URL"],
	}
	if n := first(f, "N"); n != "" {
		last, firstName, _ := strings.Cut(n, ",")
		c.Name = &PersonName{
			First:         firstName,
			Last:          last,
			FormattedName: strings.TrimSpace(firstName + " " + last),
			Pronunciation: first(f, "SOUND"),
		}
	}
	for _, tel := range f["TEL"] {
		c.Phones = append(c.Phones, Phone{Number: tel, Type: PhoneUnknown})
	}
	for _, mail := range f["EMAIL"] {
		c.Emails = append(c.Emails, Email{Address: mail, Type: EmailUnknown})
	}
	for _, adr := range f["ADR"] {
		c.Addresses = append(c.Addresses, Address{AddressLines: []string{adr}, Type: AddressUnknown})
	}
	return c, c.Name != nil || len(c.Phones) > 0 || len(c.Emails) > 0
}

// crlf normalizes line endings, since both content-line decoders expect
// RFC 5545/6350 CRLF lines.
func crlf(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.ReplaceAll(raw, "\n", "\r\n")
}

func parseVCard(raw string) (ContactInfo, bool) {
	if !strings.Contains(strings.ToUpper(raw), "END:VCARD") {
		raw += "\nEND:VCARD"
	}
	card, err := vcard.NewDecoder(strings.NewReader(crlf(raw) + "\r\n")).Decode()
	if err != nil {
		return ContactInfo{}, false
	}

	var c ContactInfo
	if n := card.Name(); n != nil {
		c.Name = &PersonName{
			First:  n.GivenName,
			Last:   n.FamilyName,
			Middle: n.AdditionalName,
			Prefix: n.HonorificPrefix,
			Suffix: n.HonorificSuffix,
		}
	}
	if fn := card.Value(vcard.FieldFormattedName); fn != "" {
		if c.Name == nil {
			c.Name = &PersonName{}
		}
		c.Name.FormattedName = fn
	}
	for _, key := range []string{"X-PHONETIC-FIRST-NAME", "SOUND"} {
		if v := card.Value(key); v != "" {
			if c.Name == nil {
				c.Name = &PersonName{}
			}
			c.Name.Pronunciation = v
			break
		}
	}
	c.Organization = strings.TrimRight(strings.ReplaceAll(card.Value(vcard.FieldOrganization), ";", " "), " ")
	c.Title = card.Value(vcard.FieldTitle)
	c.URLs = card.Values(vcard.FieldURL)

	for _, f := range card[vcard.FieldTelephone] {
		c.Phones = append(c.Phones, Phone{Number: f.Value, Type: phoneType(typeParam(f))})
	}
	for _, f := range card[vcard.FieldEmail] {
		c.Emails = append(c.Emails, Email{Address: f.Value, Type: emailType(typeParam(f))})
	}
	for _, f := range card[vcard.FieldAddress] {
		var lines []string
		for _, p := range strings.Split(f.Value, ";") {
			if p = strings.TrimSpace(p); p != "" {
				lines = append(lines, p)
			}
		}
		c.Addresses = append(c.Addresses, Address{AddressLines: lines, Type: addressType(typeParam(f))})
	}
	return c, c.Name != nil || len(c.Phones) > 0 || len(c.Emails) > 0
}

// typeParam joins the TYPE parameter values, upper-cased.
func typeParam(f *vcard.Field) string {
	var types []string
	for k, v := range f.Params {
		if strings.EqualFold(k, vcard.ParamType) {
			types = append(types, v...)
		}
	}
	return strings.ToUpper(strings.Join(types, ","))
}

func phoneType(t string) PhoneType {
	switch {
	case strings.Contains(t, "FAX"):
		return PhoneFax
	case strings.Contains(t, "CELL"), strings.Contains(t, "MOBILE"):
		return PhoneMobile
	case strings.Contains(t, "WORK"):
		return PhoneWork
	case strings.Contains(t, "HOME"):
		return PhoneHome
	default:
		return PhoneUnknown
	}
}

func emailType(t string) EmailType {
	switch {
	case strings.Contains(t, "WORK"):
		return EmailWork
	case strings.Contains(t, "HOME"):
		return EmailHome
	default:
		return EmailUnknown
	}
}

func addressType(t string) AddressType {
	switch {
	case strings.Contains(t, "WORK"):
		return AddressWork
	case strings.Contains(t, "HOME"):
		return AddressHome
	default:
		return AddressUnknown
	}
}

// parseVEvent reads the first VEVENT of a bare event or a full calendar.
func parseVEvent(raw string) (CalendarEvent, bool) {
	if !strings.HasPrefix(strings.ToUpper(raw), "BEGIN:VCALENDAR") {
		raw = "BEGIN:VCALENDAR\n" + raw + "\nEND:VCALENDAR"
	}
	cal, err := ical.NewDecoder(strings.NewReader(crlf(raw) + "\r\n")).Decode()
	if err != nil {
		return CalendarEvent{}, false
	}
	events := cal.Events()
	if len(events) == 0 {
		return CalendarEvent{}, false
	}

	props := events[0].Props
	value := func(name string) string {
		if p := props.Get(name); p != nil {
			return strings.TrimSpace(p.Value)
		}
		return ""
	}
	ev := CalendarEvent{
		Summary:     value(ical.PropSummary),
		Description: value(ical.PropDescription),
		Location:    value(ical.PropLocation),
		Status:      value(ical.PropStatus),
		Organizer:   value(ical.PropOrganizer),
	}
	if strings.HasPrefix(strings.ToLower(ev.Organizer), "mailto:") {
		ev.Organizer = ev.Organizer[len("mailto:"):]
	}
	if v := value(ical.PropDateTimeStart); v != "" {
		ev.Start = ParseCalendarDateTime(v)
	}
	if v := value(ical.PropDateTimeEnd); v != "" {
		ev.End = ParseCalendarDateTime(v)
	}
	return ev, true
}

// ParseCalendarDateTime parses iCalendar DATE or DATE-TIME values
// (YYYYMMDD or YYYYMMDDTHHMMSS[Z]). Unparseable values keep only RawValue.
func ParseCalendarDateTime(v string) *CalendarDateTime {
	dt := &CalendarDateTime{Day: -1, Hours: -1, Minutes: -1, Month: -1, Seconds: -1, Year: -1, RawValue: v}
	s := strings.TrimSpace(v)
	if strings.HasSuffix(s, "Z") {
		dt.IsUTC = true
		s = strings.TrimSuffix(s, "Z")
	}
	date, clock, hasClock := strings.Cut(s, "T")
	if len(date) != 8 || !isDigits(date) {
		return dt
	}
	dt.Year, _ = strconv.Atoi(date[0:4])
	dt.Month, _ = strconv.Atoi(date[4:6])
	dt.Day, _ = strconv.Atoi(date[6:8])
	if hasClock && len(clock) >= 4 && isDigits(clock) {
		dt.Hours, _ = strconv.Atoi(clock[0:2])
		dt.Minutes, _ = strconv.Atoi(clock[2:4])
		if len(clock) >= 6 {
			dt.Seconds, _ = strconv.Atoi(clock[4:6])
		}
	}
	return dt
}

// aamvaFields maps AAMVA element IDs to license fields.
var aamvaFields = map[string]func(*DriverLicense, string){
	"DAQ": func(d *DriverLicense, v string) { d.LicenseNumber = v },
	"DCS": func(d *DriverLicense, v string) { d.LastName = v },
	"DAB": func(d *DriverLicense, v string) { d.LastName = v },
	"DAC": func(d *DriverLicense, v string) { d.FirstName = v },
	"DCT": func(d *DriverLicense, v string) { d.FirstName = v },
	"DAD": func(d *DriverLicense, v string) { d.MiddleName = v },
	"DBB": func(d *DriverLicense, v string) { d.BirthDate = v },
	"DBA": func(d *DriverLicense, v string) { d.ExpiryDate = v },
	"DBD": func(d *DriverLicense, v string) { d.IssueDate = v },
	"DBC": func(d *DriverLicense, v string) { d.Gender = v },
	"DAG": func(d *DriverLicense, v string) { d.AddressStreet = v },
	"DAI": func(d *DriverLicense, v string) { d.AddressCity = v },
	"DAJ": func(d *DriverLicense, v string) { d.AddressState = v },
	"DAK": func(d *DriverLicense, v string) { d.AddressZip = v },
	"DCG": func(d *DriverLicense, v string) { d.IssuingCountry = v },
}

// parseAAMVA reads the PDF417 payload of North American driver licenses.
func parseAAMVA(raw string) (DriverLicense, bool) {
	if !strings.Contains(raw, "ANSI ") && !strings.Contains(raw, "AAMVA") {
		return DriverLicense{}, false
	}
	var dl DriverLicense
	switch {
	case strings.Contains(raw, "DLDAQ"):
		dl.DocumentType = "DL"
	case strings.Contains(raw, "IDDAQ"):
		dl.DocumentType = "ID"
	default:
		dl.DocumentType = "DL"
	}

	// the first element of a subfile is glued to its type, e.g. "DLDAQ123"
	body := strings.NewReplacer("DLDAQ", "\nDAQ", "IDDAQ", "\nDAQ").Replace(raw)

	found := false
	for _, line := range strings.FieldsFunc(body, func(r rune) bool { return r == '\n' || r == '\r' || r == 0x1e }) {
		if len(line) < 3 {
			continue
		}
		if set, ok := aamvaFields[line[:3]]; ok {
			set(&dl, strings.TrimSpace(line[3:]))
			found = true
		}
	}
	return dl, found && dl.LicenseNumber != ""
}
