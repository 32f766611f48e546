package platform

// DefaultInterface returns the name of the interface holding the IPv4
// default route, or "" when it cannot be determined.
func DefaultInterface() string {
	return defaultInterface()
}
