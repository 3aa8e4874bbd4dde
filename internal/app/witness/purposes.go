package witness

import (
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/catalog"
	"github.com/PersonaPass-ID/persona-wallet-sub004/internal/app/claims"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/zkp"
)

// SecondsPerYear is a Julian year, so leap days average out.
const SecondsPerYear = 31_557_600

const (
	DefaultIncomeThreshold   = 200_000
	DefaultNetWorthThreshold = 1_000_000
	DefaultMinimumLevel      = 1
	maxVerificationLevel     = 255
	maxAllowedRegions        = 8
)

var (
	BirthDateAliases = []string{"birthDate", "dateOfBirth", "birthdate", "dob", "birth_date"}
	RegionAliases    = []string{"region", "country", "jurisdiction", "countryOfResidence", "address.country"}
	IncomeAliases    = []string{"income", "annualIncome", "financial.income"}
	NetWorthAliases  = []string{"netWorth", "financial.netWorth"}
	IdentityAliases  = []string{"personhoodId", "id", "did"}
	LevelAliases     = []string{"verificationLevel", "personhood.level"}
)

func buildAgeVerification(bc *buildContext, _ *catalog.Circuit) error {
	req := bc.constraints.Requirements[0]

	minimum, ok := claims.ValueOf(req.Value).AsNumber()
	if !ok || minimum < 0 || minimum > 200 {
		return typeMismatch(req.Attribute, "minimum age must be a number between 0 and 200")
	}

	raw, alias, ok := bc.subject.LookupAny(BirthDateAliases...)
	if !ok {
		return missingAttribute("birthDate")
	}
	birth, ok := raw.AsDate()
	if !ok {
		return typeMismatch(alias, "expected a date, got %s", raw.Kind())
	}

	birthTime := zkp.EncodeTimestamp(birth)
	bc.set(catalog.EssentialField(0), req.Essential)
	bc.set("current_time", zkp.EncodeTimestamp(bc.constraints.Now))
	bc.set("min_age_seconds", int64(math.Round(minimum*SecondsPerYear)))
	bc.set("birth_time", birthTime)
	bc.set(catalog.CommitmentField, zkp.Commit(big.NewInt(birthTime), bc.salt))
	return nil
}

func buildJurisdiction(bc *buildContext, _ *catalog.Circuit) error {
	req := bc.constraints.Requirements[0]

	raw, alias, ok := lookup(bc.subject, req.Attribute, RegionAliases...)
	if !ok {
		return missingAttribute(req.Attribute)
	}
	region, ok := raw.AsText()
	if !ok {
		return typeMismatch(alias, "expected a region name, got %s", raw.Kind())
	}

	want := claims.ValueOf(req.Value)
	allowed := want.Items()
	if want.Kind() != claims.KindList {
		allowed = []claims.Value{want}
	}
	if len(allowed) == 0 || len(allowed) > maxAllowedRegions {
		return typeMismatch(req.Attribute, "between 1 and %d allowed regions are supported", maxAllowedRegions)
	}

	regionHash := hashRegion(region)
	for i := 0; i < maxAllowedRegions; i++ {
		// unused slots repeat the first region so the set is unchanged
		candidate := allowed[0]
		if i < len(allowed) {
			candidate = allowed[i]
		}
		name, ok := candidate.AsText()
		if !ok {
			return typeMismatch(req.Attribute, "allowed regions must be text")
		}
		bc.set(allowedField(i), hashRegion(name))
	}

	bc.set(catalog.EssentialField(0), req.Essential)
	bc.set("region", regionHash)
	bc.set(catalog.CommitmentField, zkp.Commit(regionHash, bc.salt))
	return nil
}

func buildAccreditedInvestor(bc *buildContext, _ *catalog.Circuit) error {
	req := bc.constraints.Requirements[0]

	incomeThreshold := float64(DefaultIncomeThreshold)
	netWorthThreshold := float64(DefaultNetWorthThreshold)
	if req.Operation == claims.OpGreaterThan {
		threshold, ok := claims.ValueOf(req.Value).AsNumber()
		if !ok || threshold < 0 {
			return typeMismatch(req.Attribute, "threshold must be a non-negative number")
		}
		switch {
		case slices.Contains(IncomeAliases, req.Attribute):
			incomeThreshold = threshold
		case slices.Contains(NetWorthAliases, req.Attribute):
			netWorthThreshold = threshold
		}
	}

	income, incomeFound, err := amount(bc.subject, IncomeAliases)
	if err != nil {
		return err
	}
	netWorth, netWorthFound, err := amount(bc.subject, NetWorthAliases)
	if err != nil {
		return err
	}
	if !incomeFound && !netWorthFound {
		return missingAttribute("income")
	}

	bc.set(catalog.EssentialField(0), req.Essential)
	bc.set("income_threshold", int64(math.Ceil(incomeThreshold)))
	bc.set("net_worth_threshold", int64(math.Ceil(netWorthThreshold)))
	bc.set("income", income)
	bc.set("net_worth", netWorth)
	bc.set(catalog.CommitmentField, zkp.Commit(big.NewInt(income), big.NewInt(netWorth), bc.salt))
	return nil
}

func buildAntiSybil(bc *buildContext, _ *catalog.Circuit) error {
	req := bc.constraints.Requirements[0]

	minimum := float64(DefaultMinimumLevel)
	if req.Operation == claims.OpGreaterThan {
		threshold, ok := claims.ValueOf(req.Value).AsNumber()
		if !ok || threshold < 0 || threshold > maxVerificationLevel {
			return typeMismatch(req.Attribute, "minimum level must be between 0 and %d", maxVerificationLevel)
		}
		minimum = threshold
	}

	identity, alias, ok := bc.subject.LookupAny(IdentityAliases...)
	if !ok {
		return missingAttribute("personhoodId")
	}
	if identity.Kind() == claims.KindList {
		return typeMismatch(alias, "expected a single identifier")
	}

	rawLevel, levelAlias, ok := bc.subject.LookupAny(LevelAliases...)
	if !ok {
		return missingAttribute("verificationLevel")
	}
	level, ok := rawLevel.AsNumber()
	if !ok || level < 0 || level > maxVerificationLevel || level != math.Trunc(level) {
		return typeMismatch(levelAlias, "verification level must be a whole number between 0 and %d", maxVerificationLevel)
	}

	identityHash := zkp.HashToField([]byte(identity.Canonical()))
	bc.set(catalog.EssentialField(0), req.Essential)
	bc.set("min_level", int64(math.Ceil(minimum)))
	bc.set("identity", identityHash)
	bc.set("level", int64(level))
	bc.set("identity_commitment", zkp.Commit(identityHash, bc.salt))
	return nil
}

// amount reads a whole, non-negative currency amount from the first alias present.
func amount(subject claims.Subject, aliases []string) (int64, bool, error) {
	raw, alias, ok := subject.LookupAny(aliases...)
	if !ok {
		return 0, false, nil
	}
	n, ok := raw.AsNumber()
	if !ok {
		return 0, true, typeMismatch(alias, "expected a number, got %s", raw.Kind())
	}
	if n < 0 || n > math.MaxInt64/2 {
		return 0, true, typeMismatch(alias, "amount out of range")
	}
	return int64(math.Floor(n)), true, nil
}

func hashRegion(region string) *big.Int {
	return zkp.HashToField([]byte(strings.ToUpper(strings.TrimSpace(region))))
}

func allowedField(i int) string {
	return "allowed_" + strconv.Itoa(i)
}
