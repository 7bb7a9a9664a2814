package enums

import "fmt"

// OrganizationType maps to the organization_type enum in Postgres.
type OrganizationType string

const (
	OrganizationTypeGroup             OrganizationType = "GROUP"
	OrganizationTypeLocalSubcommittee OrganizationType = "LOCAL_SUBCOMMITTEE"
	OrganizationTypeLocality          OrganizationType = "LOCALITY"
	OrganizationTypeRegion            OrganizationType = "REGION"
)

var validOrganizationTypes = []OrganizationType{
	OrganizationTypeGroup,
	OrganizationTypeLocalSubcommittee,
	OrganizationTypeLocality,
	OrganizationTypeRegion,
}

// String implements fmt.Stringer.
func (o OrganizationType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrganizationType.
func (o OrganizationType) IsValid() bool {
	for _, candidate := range validOrganizationTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrganizationType converts raw input into an OrganizationType.
func ParseOrganizationType(value string) (OrganizationType, error) {
	for _, candidate := range validOrganizationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid organization type %q", value)
}
