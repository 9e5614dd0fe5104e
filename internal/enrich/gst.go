package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/mealboard-admin/internal/validation"
)

// BusinessInfo описывает сведения о бизнесе, выведенные по регистрационному номеру.
type BusinessInfo struct {
	State         string
	EntityType    string
	SuggestedName string
}

// RegistrationLookup возвращает сведения о бизнесе по регистрационному номеру.
// Симуляцию ниже можно заменить клиентом реального реестра.
type RegistrationLookup interface {
	LookupByRegistrationNumber(ctx context.Context, id string) (*BusinessInfo, error)
}

// SimulatedGST выводит сведения из самого номера GSTIN, не обращаясь к реестру:
// штат — по двузначному коду в начале номера, тип юрлица — по шестому символу.
type SimulatedGST struct{}

// gstStateCodes — коды штатов в префиксе GSTIN.
var gstStateCodes = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
}

// entityTypeByPANChar — тип юрлица по четвёртому символу PAN (шестой символ GSTIN).
var entityTypeByPANChar = map[byte]string{
	'C': "Private Limited",
	'P': "Proprietorship",
	'F': "Partnership Firm",
	'H': "HUF",
	'A': "Association of Persons",
	'T': "Trust",
	'B': "Body of Individuals",
	'L': "Local Authority",
	'J': "Artificial Juridical Person",
	'G': "Government",
}

// LookupByRegistrationNumber выводит штат и тип юрлица из номера GSTIN.
func (SimulatedGST) LookupByRegistrationNumber(ctx context.Context, id string) (*BusinessInfo, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !validation.IsValidGSTIN(id) {
		return nil, fmt.Errorf("malformed gstin: %q", id)
	}

	state, ok := gstStateCodes[id[:2]]
	if !ok {
		return nil, fmt.Errorf("unknown state code: %s", id[:2])
	}

	entityType := entityTypeByPANChar[id[5]]
	if entityType == "" {
		entityType = "Business"
	}

	return &BusinessInfo{
		State:         state,
		EntityType:    entityType,
		SuggestedName: state + " " + entityType,
	}, nil
}
