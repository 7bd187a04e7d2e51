package leads_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitsa/identity/leads"
)

func validLead() leads.Lead {
	return leads.Lead{
		FirstName:   "Grace",
		LastName:    "Hopper",
		Email:       "grace@example.com",
		Phone:       "512-555-0101",
		ServiceType: leads.ServicePainting,
		Source:      leads.SourceReferral,
	}
}

func TestLeadValidate(t *testing.T) {
	t.Run("accepts a complete capture", func(t *testing.T) {
		assert.NoError(t, validLead().Validate())
	})

	t.Run("status is optional at capture", func(t *testing.T) {
		lead := validLead()
		lead.Status = ""
		assert.NoError(t, lead.Validate())
	})

	cases := map[string]func(*leads.Lead){
		"missing first name":   func(l *leads.Lead) { l.FirstName = "" },
		"missing phone":        func(l *leads.Lead) { l.Phone = "" },
		"malformed email":      func(l *leads.Lead) { l.Email = "not-an-email" },
		"unknown service type": func(l *leads.Lead) { l.ServiceType = "roofing" },
		"unknown source":       func(l *leads.Lead) { l.Source = "carrier_pigeon" },
		"unknown status":       func(l *leads.Lead) { l.Status = "archived" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			lead := validLead()
			mutate(&lead)
			assert.Error(t, lead.Validate())
		})
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []leads.Status{
		leads.StatusNew, leads.StatusContacted, leads.StatusQualified,
		leads.StatusConverted, leads.StatusLost,
	} {
		assert.True(t, s.IsValid(), string(s))
	}

	assert.False(t, leads.Status("archived").IsValid())
	assert.False(t, leads.Status("").IsValid())
}

func TestLocationColumnCodec(t *testing.T) {
	loc := leads.Location{
		Longitude: -97.7431,
		Latitude:  30.2672,
		Address:   "500 Congress Ave",
		City:      "Austin",
		State:     "TX",
		ZipCode:   "78701",
	}

	value, err := loc.Value()
	require.NoError(t, err)

	t.Run("scans its own value", func(t *testing.T) {
		var out leads.Location
		require.NoError(t, out.Scan(value))
		assert.Equal(t, loc, out)
	})

	t.Run("scans byte slices", func(t *testing.T) {
		var out leads.Location
		require.NoError(t, out.Scan([]byte(value.(string))))
		assert.Equal(t, loc, out)
	})

	t.Run("nil column is the zero location", func(t *testing.T) {
		out := loc
		require.NoError(t, out.Scan(nil))
		assert.Equal(t, leads.Location{}, out)
	})

	t.Run("rejects other column types", func(t *testing.T) {
		var out leads.Location
		assert.Error(t, out.Scan(42))
	})
}
