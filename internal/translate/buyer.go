package translate

import (
	"strings"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

// EngineBuyer converts an ACP buyer for the engine.
// The name goes out as full_name and is also split into first and last name
// for engines that only read the split form.
func EngineBuyer(b *acp.Buyer) *model.Buyer {
	if b == nil {
		return nil
	}
	out := &model.Buyer{
		Email:       acp.Deref(b.Email),
		PhoneNumber: acp.Deref(b.Phone),
	}
	if name := strings.TrimSpace(acp.Deref(b.Name)); name != "" {
		out.FullName = name
		out.FirstName, out.LastName = splitName(name)
	}
	return out
}

// SessionBuyer projects the engine buyer into ACP. Absent fields stay nil.
func SessionBuyer(b *model.Buyer) *acp.Buyer {
	if b == nil {
		return nil
	}
	name := b.FullName
	if name == "" {
		name = strings.TrimSpace(b.FirstName + " " + b.LastName)
	}
	return &acp.Buyer{
		Email: acp.String(b.Email),
		Name:  acp.String(name),
		Phone: acp.String(b.PhoneNumber),
	}
}

// MergeBuyer picks the buyer to send on update.
// A request without a buyer forwards the stored buyer unchanged.
func MergeBuyer(requested *acp.Buyer, stored *model.Buyer) *model.Buyer {
	if requested != nil {
		return EngineBuyer(requested)
	}
	if stored == nil {
		return nil
	}
	kept := *stored
	return &kept
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
