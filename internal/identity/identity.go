package identity

import (
	"strings"
)

// ===========================================================================
// Identity (Danh tính khách hàng)
// Phân loại identifier thô từ các kênh thành customer key chuẩn:
// - web user: chuỗi số thập phân (id tài khoản web)
// - guest: token opaque cho khách vãng lai
// - facebook: "fb:<psid>" cho contact Messenger
// Pure function, không bao giờ fail, input rỗng rơi về guest "unknown"
// để relay không bao giờ drop tin nhắn vì thiếu danh tính
// ===========================================================================

// FacebookPrefix tiền tố đánh dấu contact Facebook trên wire
const FacebookPrefix = "fb:"

// UnknownGuestKey key fallback khi handshake không mang identifier
const UnknownGuestKey = "guest-unknown"

// Kind loại danh tính
type Kind int

const (
	// KindWebUser tài khoản web đã đăng ký (id dạng số)
	KindWebUser Kind = iota

	// KindGuest khách vãng lai với token opaque
	KindGuest

	// KindFacebook contact Facebook Messenger (page-scoped id)
	KindFacebook
)

// String trả về tên loại danh tính (dùng cho logging)
func (k Kind) String() string {
	switch k {
	case KindWebUser:
		return "web_user"
	case KindGuest:
		return "guest"
	case KindFacebook:
		return "facebook"
	default:
		return "unknown"
	}
}

// Identity danh tính đã phân loại của một khách hàng
// Giá trị bên trong là id/token KHÔNG kèm tiền tố kênh;
// tiền tố chỉ xuất hiện khi render ra wire qua Key()
type Identity struct {
	kind  Kind
	value string
}

// Resolve chuẩn hóa identifier thô từ kênh thành Identity
// Không bao giờ fail: input rỗng trả về guest "unknown"
func Resolve(raw string) Identity {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{kind: KindGuest, value: UnknownGuestKey}
	}
	if strings.HasPrefix(raw, FacebookPrefix) {
		return Identity{kind: KindFacebook, value: strings.TrimPrefix(raw, FacebookPrefix)}
	}
	if isDecimal(raw) {
		return Identity{kind: KindWebUser, value: raw}
	}
	return Identity{kind: KindGuest, value: raw}
}

// FromPSID tạo Identity Facebook từ page-scoped id (chưa có tiền tố)
func FromPSID(psid string) Identity {
	return Identity{kind: KindFacebook, value: psid}
}

// Kind trả về loại danh tính
func (id Identity) Kind() Kind { return id.kind }

// Key render customer key chuẩn dùng trong DB và fan-out
func (id Identity) Key() string {
	if id.kind == KindFacebook {
		return FacebookPrefix + id.value
	}
	return id.value
}

// PSID trả về page-scoped id (chỉ có nghĩa với KindFacebook)
func (id Identity) PSID() string { return id.value }

// IsFacebook kiểm tra có phải contact Facebook không
func (id Identity) IsFacebook() bool { return id.kind == KindFacebook }

// IsFacebookKey kiểm tra một customer key trên wire có mang tiền tố fb: không
func IsFacebookKey(key string) bool {
	return strings.HasPrefix(key, FacebookPrefix)
}

// isDecimal kiểm tra chuỗi chỉ gồm chữ số thập phân
func isDecimal(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
