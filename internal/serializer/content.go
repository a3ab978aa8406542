package serializer

import "github.com/MeKo-Tech/visionbridge/internal/barcode"

// contentData converts typed barcode content into plain maps. Strings and
// unknown values pass through unchanged.
func contentData(data any) any {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		return v
	case barcode.Email:
		return emailMap(v)
	case barcode.Phone:
		return phoneMap(v)
	case barcode.SMS:
		return map[string]any{"message": v.Message, "phoneNumber": v.PhoneNumber}
	case barcode.URLBookmark:
		return map[string]any{"title": v.Title, "url": v.URL}
	case barcode.WiFi:
		return map[string]any{
			"encryptionType": int(v.EncryptionType),
			"password":       v.Password,
			"ssid":           v.SSID,
		}
	case barcode.GeoPoint:
		return map[string]any{"lat": v.Lat, "lng": v.Lng}
	case barcode.ContactInfo:
		return contactMap(v)
	case barcode.CalendarEvent:
		return map[string]any{
			"description": v.Description,
			"end":         dateTimeMap(v.End),
			"location":    v.Location,
			"organizer":   v.Organizer,
			"start":       dateTimeMap(v.Start),
			"status":      v.Status,
			"summary":     v.Summary,
		}
	case barcode.DriverLicense:
		return map[string]any{
			"addressCity":    v.AddressCity,
			"addressState":   v.AddressState,
			"addressStreet":  v.AddressStreet,
			"addressZip":     v.AddressZip,
			"birthDate":      v.BirthDate,
			"documentType":   v.DocumentType,
			"expiryDate":     v.ExpiryDate,
			"firstName":      v.FirstName,
			"gender":         v.Gender,
			"issueDate":      v.IssueDate,
			"issuingCountry": v.IssuingCountry,
			"lastName":       v.LastName,
			"licenseNumber":  v.LicenseNumber,
			"middleName":     v.MiddleName,
		}
	default:
		return v
	}
}

func emailMap(e barcode.Email) map[string]any {
	return map[string]any{
		"address": e.Address,
		"body":    e.Body,
		"subject": e.Subject,
		"type":    int(e.Type),
	}
}

func phoneMap(p barcode.Phone) map[string]any {
	return map[string]any{"number": p.Number, "type": int(p.Type)}
}

func contactMap(c barcode.ContactInfo) map[string]any {
	addresses := make([]any, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		lines := make([]any, 0, len(a.AddressLines))
		for _, l := range a.AddressLines {
			lines = append(lines, l)
		}
		addresses = append(addresses, map[string]any{"addressLines": lines, "type": int(a.Type)})
	}
	emails := make([]any, 0, len(c.Emails))
	for _, e := range c.Emails {
		emails = append(emails, emailMap(e))
	}
	phones := make([]any, 0, len(c.Phones))
	for _, p := range c.Phones {
		phones = append(phones, phoneMap(p))
	}
	urls := make([]any, 0, len(c.URLs))
	for _, u := range c.URLs {
		urls = append(urls, u)
	}

	var name any
	if c.Name != nil {
		name = map[string]any{
			"first":         c.Name.First,
			"formattedName": c.Name.FormattedName,
			"last":          c.Name.Last,
			"middle":        c.Name.Middle,
			"prefix":        c.Name.Prefix,
			"pronunciation": c.Name.Pronunciation,
			"suffix":        c.Name.Suffix,
		}
	}
	return map[string]any{
		"addresses":    addresses,
		"emails":       emails,
		"name":         name,
		"organization": c.Organization,
		"phones":       phones,
		"title":        c.Title,
		"urls":         urls,
	}
}

func dateTimeMap(dt *barcode.CalendarDateTime) any {
	if dt == nil {
		return nil
	}
	return map[string]any{
		"day":      dt.Day,
		"hours":    dt.Hours,
		"minutes":  dt.Minutes,
		"month":    dt.Month,
		"rawValue": dt.RawValue,
		"year":     dt.Year,
		"seconds":  dt.Seconds,
		"isUtc":    dt.IsUTC,
	}
}
