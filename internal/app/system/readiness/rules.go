// Package readiness computes the weighted readiness score of an assessment.
//
// The score is a pure function of the indicators, expressed as a table of
// rules. Each rule belongs to a domain and awards points; the maxima of all
// rules add up to 100.
package readiness

import "github.com/dalemusser/surveytrack/internal/domain/models"

// Domain groups related indicators.
type Domain string

const (
	DomainPolicy          Domain = "policy"
	DomainHumanResources  Domain = "human_resources"
	DomainICT             Domain = "ict_infrastructure"
	DomainCaseManagement  Domain = "case_management"
	DomainDataProtection  Domain = "data_protection"
	DomainServiceDelivery Domain = "service_delivery"
	DomainSurvivorSupport Domain = "survivor_support"
	DomainMonitoring      Domain = "monitoring"
)

// Domains lists the scored domains in report order.
var Domains = []Domain{
	DomainPolicy, DomainHumanResources, DomainICT, DomainCaseManagement,
	DomainDataProtection, DomainServiceDelivery, DomainSurvivorSupport, DomainMonitoring,
}

// Rule awards points for one indicator.
type Rule struct {
	Domain    Domain
	Indicator string
	Max       float64
	eval      func(models.Indicators) float64
}

// Points returns the points the rule awards for in.
func (r Rule) Points(in models.Indicators) float64 { return r.eval(in) }

// Met reports whether the rule awards any points for in.
func (r Rule) Met(in models.Indicators) bool { return r.eval(in) > 0 }

// Tier is one step of a tiered rule: counts >= Min earn Points.
type Tier struct {
	Min    int
	Points float64
}

func flag(d Domain, name string, points float64, get func(models.Indicators) bool) Rule {
	return Rule{Domain: d, Indicator: name, Max: points, eval: func(in models.Indicators) float64 {
		if get(in) {
			return points
		}
		return 0
	}}
}

// tiered evaluates tiers top-down; the first tier whose Min is reached wins.
// Tiers must be ordered by descending Min.
func tiered(d Domain, name string, get func(models.Indicators) int, tiers ...Tier) Rule {
	return Rule{Domain: d, Indicator: name, Max: tiers[0].Points, eval: func(in models.Indicators) float64 {
		n := get(in)
		for _, t := range tiers {
			if n >= t.Min {
				return t.Points
			}
		}
		return 0
	}}
}

func connectivity(d Domain, name string, levels map[models.Connectivity]float64) Rule {
	top := 0.0
	for _, p := range levels {
		if p > top {
			top = p
		}
	}
	return Rule{Domain: d, Indicator: name, Max: top, eval: func(in models.Indicators) float64 {
		return levels[in.InternetConnectivity]
	}}
}

// Rules is the scoring table.
var Rules = []Rule{
	flag(DomainPolicy, "has_gbv_policy", 5, func(in models.Indicators) bool { return in.HasGBVPolicy }),
	flag(DomainPolicy, "has_gbv_action_plan", 3, func(in models.Indicators) bool { return in.HasGBVActionPlan }),
	flag(DomainPolicy, "has_gbv_focal_point", 4, func(in models.Indicators) bool { return in.HasGBVFocalPoint }),
	flag(DomainPolicy, "has_gbv_budget_allocation", 3, func(in models.Indicators) bool { return in.HasGBVBudgetAllocation }),

	flag(DomainHumanResources, "has_trained_staff", 5, func(in models.Indicators) bool { return in.HasTrainedStaff }),
	tiered(DomainHumanResources, "num_trained_staff", func(in models.Indicators) int { return in.NumTrainedStaff },
		Tier{Min: 5, Points: 5}, Tier{Min: 2, Points: 3}, Tier{Min: 1, Points: 1}),
	flag(DomainHumanResources, "has_dedicated_gbv_unit", 5, func(in models.Indicators) bool { return in.HasDedicatedGBVUnit }),

	flag(DomainICT, "has_computers", 5, func(in models.Indicators) bool { return in.HasComputers }),
	tiered(DomainICT, "num_functional_computers", func(in models.Indicators) int { return in.NumFunctionalComputers },
		Tier{Min: 5, Points: 5}, Tier{Min: 2, Points: 3}),
	connectivity(DomainICT, "internet_connectivity", map[models.Connectivity]float64{
		models.ConnectivityExcellent: 10,
		models.ConnectivityGood:      7,
		models.ConnectivityModerate:  4,
		models.ConnectivityLimited:   2,
		models.ConnectivityNone:      0,
	}),

	flag(DomainCaseManagement, "has_case_management_system", 8, func(in models.Indicators) bool { return in.HasCaseManagementSystem }),
	flag(DomainCaseManagement, "has_electronic_records", 4, func(in models.Indicators) bool { return in.HasElectronicRecords }),
	flag(DomainCaseManagement, "has_data_backup_system", 3, func(in models.Indicators) bool { return in.HasDataBackupSystem }),

	flag(DomainDataProtection, "has_data_protection_policy", 4, func(in models.Indicators) bool { return in.HasDataProtectionPolicy }),
	flag(DomainDataProtection, "has_confidentiality_protocols", 3, func(in models.Indicators) bool { return in.HasConfidentialityProtocols }),
	flag(DomainDataProtection, "has_access_controls", 3, func(in models.Indicators) bool { return in.HasAccessControls }),

	flag(DomainServiceDelivery, "has_referral_pathway", 5, func(in models.Indicators) bool { return in.HasReferralPathway }),
	flag(DomainServiceDelivery, "has_helpline", 3, func(in models.Indicators) bool { return in.HasHelpline }),
	flag(DomainServiceDelivery, "has_24hr_service", 2, func(in models.Indicators) bool { return in.Has24hrService }),

	flag(DomainSurvivorSupport, "has_survivor_support", 4, func(in models.Indicators) bool { return in.HasSurvivorSupport }),
	flag(DomainSurvivorSupport, "has_counseling_services", 2, func(in models.Indicators) bool { return in.HasCounselingServices }),
	flag(DomainSurvivorSupport, "has_legal_support", 2, func(in models.Indicators) bool { return in.HasLegalSupport }),
	flag(DomainSurvivorSupport, "has_medical_support", 2, func(in models.Indicators) bool { return in.HasMedicalSupport }),

	flag(DomainMonitoring, "has_monitoring_system", 3, func(in models.Indicators) bool { return in.HasMonitoringSystem }),
	flag(DomainMonitoring, "has_reporting_mechanism", 2, func(in models.Indicators) bool { return in.HasReportingMechanism }),
}
