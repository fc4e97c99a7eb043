package model

// Access is the permission a single user holds on a record.
type Access struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// ACL is the access policy stored with each family member record.
type ACL struct {
	PublicRead  bool              `json:"public_read"`
	PublicWrite bool              `json:"public_write"`
	Users       map[string]Access `json:"users,omitempty"`
}

// OwnerOnly grants read and write to userID and denies everyone else.
func OwnerOnly(userID string) ACL {
	return ACL{
		Users: map[string]Access{userID: {Read: true, Write: true}},
	}
}

func (a ACL) CanRead(userID string) bool {
	if a.PublicRead {
		return true
	}
	return a.Users[userID].Read
}

func (a ACL) CanWrite(userID string) bool {
	if a.PublicWrite {
		return true
	}
	return a.Users[userID].Write
}

func (a ACL) Clone() ACL {
	c := a
	if a.Users != nil {
		c.Users = make(map[string]Access, len(a.Users))
		for k, v := range a.Users {
			c.Users[k] = v
		}
	}
	return c
}
