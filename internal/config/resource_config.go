package config

type ResourceConfig interface {
	GetResourceURL() string
	GetRecordsDoctype() string
	GetRecordsRole() string
}

type Resource struct{}

var _ ResourceConfig = Resource{}

// GetResourceURL is the API the access token is presented to. Defaults to the provider itself.
func (Resource) GetResourceURL() string {
	return GetEnv("RESOURCE_URL", OAuth{}.GetServerURL())
}

func (Resource) GetRecordsDoctype() string {
	return GetEnv("RECORDS_DOCTYPE", "ToDo")
}

// GetRecordsRole is the provider role required to list records. Empty allows any signed-in user.
func (Resource) GetRecordsRole() string {
	return GetEnv("RECORDS_ROLE", "")
}
