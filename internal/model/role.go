package model

// Role описывает роль субъекта запроса.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Capability описывает действие, требующее определённой роли.
type Capability int

const (
	// CapBrowse разрешает просмотр каталога.
	CapBrowse Capability = iota
	// CapShop разрешает работу с корзиной, избранным, заказами и оплатой.
	CapShop
	// CapManageStore разрешает управление товарами, купонами, заказами и настройками.
	CapManageStore
)

var capabilities = map[Role][]Capability{
	RoleGuest: {CapBrowse},
	RoleUser:  {CapBrowse, CapShop},
	RoleAdmin: {CapBrowse, CapShop, CapManageStore},
}

// ParseRole приводит строку к роли; неизвестные значения дают гостя.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser:
		return RoleUser
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleGuest
	}
}

// Can сообщает, разрешено ли роли действие c.
func (r Role) Can(c Capability) bool {
	for _, allowed := range capabilities[ParseRole(string(r))] {
		if allowed == c {
			return true
		}
	}
	return false
}
