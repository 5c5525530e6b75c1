// internal/domain/models/readiness.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connectivity is the internet connectivity level reported by an institution.
type Connectivity string

const (
	ConnectivityNone      Connectivity = "none"
	ConnectivityLimited   Connectivity = "limited"
	ConnectivityModerate  Connectivity = "moderate"
	ConnectivityGood      Connectivity = "good"
	ConnectivityExcellent Connectivity = "excellent"
)

// Valid reports whether c is one of the five levels.
func (c Connectivity) Valid() bool {
	switch c {
	case ConnectivityNone, ConnectivityLimited, ConnectivityModerate, ConnectivityGood, ConnectivityExcellent:
		return true
	}
	return false
}

// Indicators are the typed answers of one readiness assessment, grouped by
// domain. Optional numbers are pointers so "not answered" survives storage.
type Indicators struct {
	// Policy and governance
	HasGBVPolicy           bool     `bson:"has_gbv_policy" json:"has_gbv_policy"`
	GBVPolicyYear          *int     `bson:"gbv_policy_year,omitempty" json:"gbv_policy_year,omitempty"`
	HasGBVActionPlan       bool     `bson:"has_gbv_action_plan" json:"has_gbv_action_plan"`
	HasGBVFocalPoint       bool     `bson:"has_gbv_focal_point" json:"has_gbv_focal_point"`
	GBVFocalPointName      string   `bson:"gbv_focal_point_name,omitempty" json:"gbv_focal_point_name,omitempty"`
	HasGBVBudgetAllocation bool     `bson:"has_gbv_budget_allocation" json:"has_gbv_budget_allocation"`
	AnnualGBVBudget        *float64 `bson:"annual_gbv_budget,omitempty" json:"annual_gbv_budget,omitempty"`

	// Human resources
	HasTrainedStaff     bool       `bson:"has_trained_staff" json:"has_trained_staff"`
	NumTrainedStaff     int        `bson:"num_trained_staff" json:"num_trained_staff"`
	NumTotalStaff       int        `bson:"num_total_staff" json:"num_total_staff"`
	LastTrainingDate    *time.Time `bson:"last_training_date,omitempty" json:"last_training_date,omitempty"`
	TrainingFrequency   string     `bson:"training_frequency,omitempty" json:"training_frequency,omitempty"`
	HasDedicatedGBVUnit bool       `bson:"has_dedicated_gbv_unit" json:"has_dedicated_gbv_unit"`
	NumGBVStaff         int        `bson:"num_gbv_staff" json:"num_gbv_staff"`

	// ICT infrastructure
	HasComputers           bool         `bson:"has_computers" json:"has_computers"`
	NumComputers           int          `bson:"num_computers" json:"num_computers"`
	NumFunctionalComputers int          `bson:"num_functional_computers" json:"num_functional_computers"`
	InternetConnectivity   Connectivity `bson:"internet_connectivity" json:"internet_connectivity"`
	InternetSpeedMbps      *int         `bson:"internet_speed_mbps,omitempty" json:"internet_speed_mbps,omitempty"`
	HasBackupPower         bool         `bson:"has_backup_power" json:"has_backup_power"`
	HasServerRoom          bool         `bson:"has_server_room" json:"has_server_room"`

	// Case management
	HasCaseManagementSystem bool   `bson:"has_case_management_system" json:"has_case_management_system"`
	CMSType                 string `bson:"cms_type,omitempty" json:"cms_type,omitempty"`
	CMSName                 string `bson:"cms_name,omitempty" json:"cms_name,omitempty"`
	HasElectronicRecords    bool   `bson:"has_electronic_records" json:"has_electronic_records"`
	HasDataBackupSystem     bool   `bson:"has_data_backup_system" json:"has_data_backup_system"`
	BackupFrequency         string `bson:"backup_frequency,omitempty" json:"backup_frequency,omitempty"`

	// Data protection
	HasDataProtectionPolicy     bool `bson:"has_data_protection_policy" json:"has_data_protection_policy"`
	HasConfidentialityProtocols bool `bson:"has_confidentiality_protocols" json:"has_confidentiality_protocols"`
	HasAccessControls           bool `bson:"has_access_controls" json:"has_access_controls"`
	HasDataEncryption           bool `bson:"has_data_encryption" json:"has_data_encryption"`
	HasAuditTrail               bool `bson:"has_audit_trail" json:"has_audit_trail"`

	// Service delivery
	HasReferralPathway    bool   `bson:"has_referral_pathway" json:"has_referral_pathway"`
	ReferralPartnersCount int    `bson:"referral_partners_count" json:"referral_partners_count"`
	Has24hrService        bool   `bson:"has_24hr_service" json:"has_24hr_service"`
	HasHelpline           bool   `bson:"has_helpline" json:"has_helpline"`
	HelplineNumber        string `bson:"helpline_number,omitempty" json:"helpline_number,omitempty"`
	HasMobileServices     bool   `bson:"has_mobile_services" json:"has_mobile_services"`

	// Survivor support
	HasSurvivorSupport    bool `bson:"has_survivor_support" json:"has_survivor_support"`
	HasCounselingServices bool `bson:"has_counseling_services" json:"has_counseling_services"`
	HasLegalSupport       bool `bson:"has_legal_support" json:"has_legal_support"`
	HasMedicalSupport     bool `bson:"has_medical_support" json:"has_medical_support"`
	HasShelterServices    bool `bson:"has_shelter_services" json:"has_shelter_services"`
	HasEconomicSupport    bool `bson:"has_economic_support" json:"has_economic_support"`

	// Monitoring and reporting
	HasReportingMechanism    bool   `bson:"has_reporting_mechanism" json:"has_reporting_mechanism"`
	ReportingFrequency       string `bson:"reporting_frequency,omitempty" json:"reporting_frequency,omitempty"`
	HasMonitoringSystem      bool   `bson:"has_monitoring_system" json:"has_monitoring_system"`
	HasPerformanceIndicators bool   `bson:"has_performance_indicators" json:"has_performance_indicators"`
	NumCasesReportedLastYear *int   `bson:"num_cases_reported_last_year,omitempty" json:"num_cases_reported_last_year,omitempty"`
	NumCasesResolvedLastYear *int   `bson:"num_cases_resolved_last_year,omitempty" json:"num_cases_resolved_last_year,omitempty"`

	// Partnerships and coordination
	HasPartnerships                    bool   `bson:"has_partnerships" json:"has_partnerships"`
	NumActivePartnerships              int    `bson:"num_active_partnerships" json:"num_active_partnerships"`
	HasMOUWithPartners                 bool   `bson:"has_mou_with_partners" json:"has_mou_with_partners"`
	ParticipatesInCoordinationMeetings bool   `bson:"participates_in_coordination_meetings" json:"participates_in_coordination_meetings"`
	CoordinationMeetingFrequency       string `bson:"coordination_meeting_frequency,omitempty" json:"coordination_meeting_frequency,omitempty"`

	// Community engagement
	HasCommunityOutreach   bool   `bson:"has_community_outreach" json:"has_community_outreach"`
	OutreachFrequency      string `bson:"outreach_frequency,omitempty" json:"outreach_frequency,omitempty"`
	HasAwarenessPrograms   bool   `bson:"has_awareness_programs" json:"has_awareness_programs"`
	HasCommunityVolunteers bool   `bson:"has_community_volunteers" json:"has_community_volunteers"`
	NumCommunityVolunteers int    `bson:"num_community_volunteers" json:"num_community_volunteers"`

	// Respondent
	RespondentName     string `bson:"respondent_name,omitempty" json:"respondent_name,omitempty"`
	RespondentPosition string `bson:"respondent_position,omitempty" json:"respondent_position,omitempty"`
	RespondentEmail    string `bson:"respondent_email,omitempty" json:"respondent_email,omitempty"`
	RespondentPhone    string `bson:"respondent_phone,omitempty" json:"respondent_phone,omitempty"`

	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ReadinessRecord stores the indicators for one survey together with the
// score computed from them. Campaign, institution and region are copied from
// the survey so reports can aggregate without joins.
type ReadinessRecord struct {
	ID             primitive.ObjectID `bson:"_id"`
	SurveyID       primitive.ObjectID `bson:"survey_id"`
	CampaignID     primitive.ObjectID `bson:"campaign_id"`
	InstitutionID  primitive.ObjectID `bson:"institution_id"`
	RegionCode     string             `bson:"region_code"`
	Indicators     Indicators         `bson:"indicators"`
	ReadinessScore float64            `bson:"readiness_score"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}
