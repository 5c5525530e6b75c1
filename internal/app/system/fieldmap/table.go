// internal/app/system/fieldmap/table.go
package fieldmap

import (
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
)

// Storage limits for free text, in runes.
const (
	maxName  = 255
	maxShort = 50
	maxType  = 100
	maxLong  = 4000
)

func ind(r *Record) *models.Indicators { return &r.Indicators }

// DefaultTable is the alias table for the readiness assessment form. Aliases
// are tried in order; the first one present in a submission wins.
var DefaultTable = Table{
	// Identity
	Text(FieldSubmissionID, maxType, func(r *Record) *string { return &r.SubmissionID },
		"_id", "_uuid", "meta/instanceID"),
	Date(FieldSubmissionDate, func(r *Record) **time.Time { return &r.SubmittedAt },
		"_submission_time", "submission_date", "date", "end"),
	Text(FieldInstitutionName, maxName, func(r *Record) *string { return &r.Institution.Name },
		"institution_name", "name_of_institution", "org_name", "institution", "institution_info/institution_name"),
	Enum("institution_type", SectorTable, func(r *Record, v string) { r.Institution.Sector = models.Sector(v) },
		"institution_type", "type_of_institution", "org_type", "sector", "institution_info/institution_type"),
	Enum(FieldRegion, RegionTable, func(r *Record, v string) { r.Institution.RegionCode = v },
		"region", "region_name", "location/region", "institution_info/region"),
	Text("address", maxLong, func(r *Record) *string { return &r.Institution.Address },
		"address", "physical_address", "location/address"),
	Text("contact_person", maxName, func(r *Record) *string { return &r.Institution.ContactPerson },
		"contact_person", "focal_person"),
	Text("contact_email", maxName, func(r *Record) *string { return &r.Institution.ContactEmail },
		"contact_email", "institution_email", "email"),
	Text("contact_phone", maxShort, func(r *Record) *string { return &r.Institution.ContactPhone },
		"contact_phone", "institution_phone", "phone"),
	Geopoint("geolocation", func(r *Record, lat, lon float64) {
		r.Institution.Latitude, r.Institution.Longitude = &lat, &lon
	}, "_geolocation", "gps", "location/gps", "geopoint"),

	// Policy and governance
	Bool("has_gbv_policy", func(r *Record) *bool { return &ind(r).HasGBVPolicy },
		"has_gbv_policy", "gbv_policy_exists", "policy/gbv_policy").AsLead(),
	OptionalInt("gbv_policy_year", func(r *Record) **int { return &ind(r).GBVPolicyYear },
		"gbv_policy_year", "policy_year", "policy/gbv_policy_year"),
	Bool("has_gbv_action_plan", func(r *Record) *bool { return &ind(r).HasGBVActionPlan },
		"has_gbv_action_plan", "gbv_action_plan", "action_plan", "policy/action_plan"),
	Bool("has_gbv_focal_point", func(r *Record) *bool { return &ind(r).HasGBVFocalPoint },
		"has_gbv_focal_point", "gbv_focal_point", "focal_point", "policy/focal_point"),
	Text("gbv_focal_point_name", maxName, func(r *Record) *string { return &ind(r).GBVFocalPointName },
		"gbv_focal_point_name", "focal_point_name"),
	Bool("has_gbv_budget_allocation", func(r *Record) *bool { return &ind(r).HasGBVBudgetAllocation },
		"has_gbv_budget_allocation", "gbv_budget_allocation", "budget_allocation", "policy/budget_allocation"),
	Decimal("annual_gbv_budget", func(r *Record) **float64 { return &ind(r).AnnualGBVBudget },
		"annual_gbv_budget", "gbv_budget_amount", "budget_amount"),

	// Human resources
	Bool("has_trained_staff", func(r *Record) *bool { return &ind(r).HasTrainedStaff },
		"trained_staff", "staff_trained", "has_trained_staff").AsLead(),
	Int("num_trained_staff", func(r *Record) *int { return &ind(r).NumTrainedStaff },
		"num_trained_staff", "number_trained", "trained_staff_count"),
	Int("num_total_staff", func(r *Record) *int { return &ind(r).NumTotalStaff },
		"num_total_staff", "total_staff", "staff_count"),
	Date("last_training_date", func(r *Record) **time.Time { return &ind(r).LastTrainingDate },
		"last_training_date", "date_last_training"),
	Text("training_frequency", maxShort, func(r *Record) *string { return &ind(r).TrainingFrequency },
		"training_frequency", "how_often_training"),
	Bool("has_dedicated_gbv_unit", func(r *Record) *bool { return &ind(r).HasDedicatedGBVUnit },
		"has_dedicated_gbv_unit", "dedicated_gbv_unit", "gbv_unit"),
	Int("num_gbv_staff", func(r *Record) *int { return &ind(r).NumGBVStaff },
		"num_gbv_staff", "gbv_staff_count"),

	// ICT infrastructure
	Bool("has_computers", func(r *Record) *bool { return &ind(r).HasComputers },
		"has_computers", "computer_access", "computers_available").AsLead(),
	Int("num_computers", func(r *Record) *int { return &ind(r).NumComputers },
		"num_computers", "number_of_computers", "computer_count"),
	Int("num_functional_computers", func(r *Record) *int { return &ind(r).NumFunctionalComputers },
		"num_functional_computers", "functional_computers", "working_computers"),
	Enum("internet_connectivity", ConnectivityTable, func(r *Record, v string) {
		ind(r).InternetConnectivity = models.Connectivity(v)
	}, "internet_connectivity", "internet_access", "connectivity"),
	OptionalInt("internet_speed_mbps", func(r *Record) **int { return &ind(r).InternetSpeedMbps },
		"internet_speed_mbps", "internet_speed", "bandwidth_mbps"),
	Bool("has_backup_power", func(r *Record) *bool { return &ind(r).HasBackupPower },
		"has_backup_power", "backup_power", "generator"),
	Bool("has_server_room", func(r *Record) *bool { return &ind(r).HasServerRoom },
		"has_server_room", "server_room"),

	// Case management
	Bool("has_case_management_system", func(r *Record) *bool { return &ind(r).HasCaseManagementSystem },
		"case_management_system", "cms_exists", "has_cms", "has_case_management_system").AsLead(),
	Text("cms_type", maxType, func(r *Record) *string { return &ind(r).CMSType },
		"cms_type", "case_management_type"),
	Text("cms_name", maxName, func(r *Record) *string { return &ind(r).CMSName },
		"cms_name", "case_management_name"),
	Bool("has_electronic_records", func(r *Record) *bool { return &ind(r).HasElectronicRecords },
		"has_electronic_records", "electronic_records", "digital_records"),
	Bool("has_data_backup_system", func(r *Record) *bool { return &ind(r).HasDataBackupSystem },
		"has_data_backup_system", "data_backup", "backup_system"),
	Text("backup_frequency", maxShort, func(r *Record) *string { return &ind(r).BackupFrequency },
		"backup_frequency"),

	// Data protection
	Bool("has_data_protection_policy", func(r *Record) *bool { return &ind(r).HasDataProtectionPolicy },
		"data_protection_policy", "data_privacy_policy", "has_data_protection", "has_data_protection_policy").AsLead(),
	Bool("has_confidentiality_protocols", func(r *Record) *bool { return &ind(r).HasConfidentialityProtocols },
		"has_confidentiality_protocols", "confidentiality_protocols", "confidentiality"),
	Bool("has_access_controls", func(r *Record) *bool { return &ind(r).HasAccessControls },
		"has_access_controls", "access_controls", "access_control"),
	Bool("has_data_encryption", func(r *Record) *bool { return &ind(r).HasDataEncryption },
		"has_data_encryption", "data_encryption", "encryption"),
	Bool("has_audit_trail", func(r *Record) *bool { return &ind(r).HasAuditTrail },
		"has_audit_trail", "audit_trail"),

	// Service delivery
	Bool("has_referral_pathway", func(r *Record) *bool { return &ind(r).HasReferralPathway },
		"referral_pathway", "has_referral_pathway", "referral_system").AsLead(),
	Int("referral_partners_count", func(r *Record) *int { return &ind(r).ReferralPartnersCount },
		"referral_partners_count", "num_referral_partners"),
	Bool("has_24hr_service", func(r *Record) *bool { return &ind(r).Has24hrService },
		"has_24hr_service", "24hr_service", "twenty_four_hour_service"),
	Bool("has_helpline", func(r *Record) *bool { return &ind(r).HasHelpline },
		"has_helpline", "helpline", "hotline"),
	Text("helpline_number", maxShort, func(r *Record) *string { return &ind(r).HelplineNumber },
		"helpline_number", "hotline_number"),
	Bool("has_mobile_services", func(r *Record) *bool { return &ind(r).HasMobileServices },
		"has_mobile_services", "mobile_services", "outreach_services"),

	// Survivor support
	Bool("has_survivor_support", func(r *Record) *bool { return &ind(r).HasSurvivorSupport },
		"survivor_support", "has_survivor_support", "victim_support").AsLead(),
	Bool("has_counseling_services", func(r *Record) *bool { return &ind(r).HasCounselingServices },
		"has_counseling_services", "counseling_services", "counselling_services", "counseling"),
	Bool("has_legal_support", func(r *Record) *bool { return &ind(r).HasLegalSupport },
		"has_legal_support", "legal_support", "legal_aid"),
	Bool("has_medical_support", func(r *Record) *bool { return &ind(r).HasMedicalSupport },
		"has_medical_support", "medical_support", "medical_services"),
	Bool("has_shelter_services", func(r *Record) *bool { return &ind(r).HasShelterServices },
		"has_shelter_services", "shelter_services", "shelter"),
	Bool("has_economic_support", func(r *Record) *bool { return &ind(r).HasEconomicSupport },
		"has_economic_support", "economic_support", "livelihood_support"),

	// Monitoring and reporting
	Bool("has_reporting_mechanism", func(r *Record) *bool { return &ind(r).HasReportingMechanism },
		"reporting_mechanism", "has_reporting_mechanism", "complaint_mechanism"),
	Text("reporting_frequency", maxShort, func(r *Record) *string { return &ind(r).ReportingFrequency },
		"reporting_frequency"),
	Bool("has_monitoring_system", func(r *Record) *bool { return &ind(r).HasMonitoringSystem },
		"monitoring_system", "has_monitoring", "m_and_e_system", "has_monitoring_system").AsLead(),
	Bool("has_performance_indicators", func(r *Record) *bool { return &ind(r).HasPerformanceIndicators },
		"has_performance_indicators", "performance_indicators", "kpis"),
	OptionalInt("num_cases_reported_last_year", func(r *Record) **int { return &ind(r).NumCasesReportedLastYear },
		"num_cases_reported_last_year", "cases_reported", "cases_reported_last_year"),
	OptionalInt("num_cases_resolved_last_year", func(r *Record) **int { return &ind(r).NumCasesResolvedLastYear },
		"num_cases_resolved_last_year", "cases_resolved", "cases_resolved_last_year"),

	// Partnerships and coordination
	Bool("has_partnerships", func(r *Record) *bool { return &ind(r).HasPartnerships },
		"partnerships", "has_partnerships", "partner_organizations"),
	Int("num_active_partnerships", func(r *Record) *int { return &ind(r).NumActivePartnerships },
		"num_active_partnerships", "active_partnerships", "number_of_partners"),
	Bool("has_mou_with_partners", func(r *Record) *bool { return &ind(r).HasMOUWithPartners },
		"has_mou_with_partners", "mou_with_partners", "has_mou"),
	Bool("participates_in_coordination_meetings", func(r *Record) *bool { return &ind(r).ParticipatesInCoordinationMeetings },
		"participates_in_coordination_meetings", "coordination_meetings"),
	Text("coordination_meeting_frequency", maxShort, func(r *Record) *string { return &ind(r).CoordinationMeetingFrequency },
		"coordination_meeting_frequency", "meeting_frequency"),

	// Community engagement
	Bool("has_community_outreach", func(r *Record) *bool { return &ind(r).HasCommunityOutreach },
		"has_community_outreach", "community_outreach"),
	Text("outreach_frequency", maxShort, func(r *Record) *string { return &ind(r).OutreachFrequency },
		"outreach_frequency"),
	Bool("has_awareness_programs", func(r *Record) *bool { return &ind(r).HasAwarenessPrograms },
		"has_awareness_programs", "awareness_programs", "awareness_programmes"),
	Bool("has_community_volunteers", func(r *Record) *bool { return &ind(r).HasCommunityVolunteers },
		"has_community_volunteers", "community_volunteers"),
	Int("num_community_volunteers", func(r *Record) *int { return &ind(r).NumCommunityVolunteers },
		"num_community_volunteers", "volunteer_count"),

	// Respondent
	Text("respondent_name", maxName, func(r *Record) *string { return &ind(r).RespondentName },
		"respondent_name", "respondent", "enumerator"),
	Text("respondent_position", maxName, func(r *Record) *string { return &ind(r).RespondentPosition },
		"respondent_position", "position", "job_title"),
	Text("respondent_email", maxName, func(r *Record) *string { return &ind(r).RespondentEmail },
		"respondent_email", "contact/email"),
	Text("respondent_phone", maxShort, func(r *Record) *string { return &ind(r).RespondentPhone },
		"respondent_phone", "respondent_contact", "contact"),

	Text("notes", maxLong, func(r *Record) *string { return &ind(r).Notes },
		"notes", "comments", "additional_comments"),
}
