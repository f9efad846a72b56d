// internal/models/documents.go
package models

import "strings"

// ExtractedDocumentFacts is the raw field → value mapping produced by the
// extraction collaborator for a single source document.
type ExtractedDocumentFacts map[string]string

// Get returns the first non-empty value among the given field names.
func (f ExtractedDocumentFacts) Get(keys ...string) string {
	for _, k := range keys {
		if v, ok := f[k]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// DocumentCategory tags the bucket a source document belongs to.
type DocumentCategory string

const (
	CategoryPassport      DocumentCategory = "passport"
	CategoryStatusRecord  DocumentCategory = "status_record"
	CategoryProgramRecord DocumentCategory = "program_record"
	CategoryBankStatement DocumentCategory = "bank_statement"
	CategoryAssetRecord   DocumentCategory = "asset_record"
	CategoryTiesRecord    DocumentCategory = "ties_record"
)

// StatementRole is the explicit attribution tag of a bank statement.
type StatementRole string

const (
	RoleUnknown   StatementRole = ""
	RoleApplicant StatementRole = "applicant"
	RoleSponsor   StatementRole = "sponsor"
)

type Passport struct {
	FullName       string `json:"fullName,omitempty"`
	Number         string `json:"number,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`
}

// StatusRecord is the arrival/departure record (I-94).
type StatusRecord struct {
	AdmissionNumber  string `json:"admissionNumber,omitempty"`
	ClassOfAdmission string `json:"classOfAdmission,omitempty"`
	EntryDate        string `json:"entryDate,omitempty"`
	AdmitUntilDate   string `json:"admitUntilDate,omitempty"`
	PortOfEntry      string `json:"portOfEntry,omitempty"`
}

// ProgramRecord is the school's certificate of eligibility (I-20).
type ProgramRecord struct {
	SchoolName     string `json:"schoolName,omitempty"`
	ProgramName    string `json:"programName,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	Tuition        string `json:"tuition,omitempty"`
	LivingExpenses string `json:"livingExpenses,omitempty"`
	TotalCost      string `json:"totalCost,omitempty"`
	FinancialText  string `json:"financialText,omitempty"`
	SEVISID        string `json:"sevisId,omitempty"`
}

type BankStatement struct {
	AccountHolder  string        `json:"accountHolder,omitempty"`
	BankName       string        `json:"bankName,omitempty"`
	ClosingBalance string        `json:"closingBalance,omitempty"`
	TotalBalance   string        `json:"totalBalance,omitempty"`
	StatementDate  string        `json:"statementDate,omitempty"`
	Currency       string        `json:"currency,omitempty"`
	Role           StatementRole `json:"role,omitempty"`
}

type AssetRecord struct {
	Owner       string `json:"owner,omitempty"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
}

// TiesRecord documents an objective tie to the home country
// (employment offer, property deed, family business, ...).
type TiesRecord struct {
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	Holder      string `json:"holder,omitempty"`
}

// DecodePassport maps known passport field names onto the variant.
func DecodePassport(f ExtractedDocumentFacts) Passport {
	return Passport{
		FullName:       f.Get("fullName", "full_name", "name"),
		Number:         f.Get("passportNumber", "passport_number", "number"),
		Nationality:    f.Get("nationality", "countryOfCitizenship", "country"),
		DateOfBirth:    f.Get("dateOfBirth", "date_of_birth", "dob"),
		ExpirationDate: f.Get("expirationDate", "expiration_date", "expiryDate"),
	}
}

func DecodeStatusRecord(f ExtractedDocumentFacts) StatusRecord {
	return StatusRecord{
		AdmissionNumber:  f.Get("admissionNumber", "admission_number", "i94Number"),
		ClassOfAdmission: f.Get("classOfAdmission", "class_of_admission", "admissionClass"),
		EntryDate:        f.Get("entryDate", "entry_date", "mostRecentEntry", "dateOfEntry"),
		AdmitUntilDate:   f.Get("admitUntilDate", "admit_until_date", "statusExpiry", "expiryDate"),
		PortOfEntry:      f.Get("portOfEntry", "port_of_entry"),
	}
}

func DecodeProgramRecord(f ExtractedDocumentFacts) ProgramRecord {
	return ProgramRecord{
		SchoolName:     f.Get("schoolName", "school_name", "institution"),
		ProgramName:    f.Get("programName", "program_name", "major", "fieldOfStudy"),
		StartDate:      f.Get("programStartDate", "program_start_date", "startDate"),
		EndDate:        f.Get("programEndDate", "program_end_date", "endDate"),
		Tuition:        f.Get("tuition", "tuitionAndFees", "tuition_and_fees"),
		LivingExpenses: f.Get("livingExpenses", "living_expenses", "roomAndBoard"),
		TotalCost:      f.Get("totalCost", "total_cost", "totalRequired", "estimatedTotal"),
		FinancialText:  f.Get("financialText", "financial_text", "financials"),
		SEVISID:        f.Get("sevisId", "sevis_id"),
	}
}

func DecodeBankStatement(f ExtractedDocumentFacts) BankStatement {
	return BankStatement{
		AccountHolder:  f.Get("accountHolder", "account_holder", "accountName", "holderName"),
		BankName:       f.Get("bankName", "bank_name", "institution"),
		ClosingBalance: f.Get("closingBalance", "closing_balance", "endingBalance"),
		TotalBalance:   f.Get("totalBalance", "total_balance", "availableBalance"),
		StatementDate:  f.Get("statementDate", "statement_date", "periodEnd"),
		Currency:       f.Get("currency"),
		Role:           ParseStatementRole(f.Get("statementType", "statement_type", "role", "ownerType")),
	}
}

func DecodeAssetRecord(f ExtractedDocumentFacts) AssetRecord {
	return AssetRecord{
		Owner:       f.Get("owner", "ownerName", "holder"),
		Description: f.Get("description", "assetType", "type"),
		Value:       f.Get("value", "estimatedValue", "amount"),
	}
}

func DecodeTiesRecord(f ExtractedDocumentFacts) TiesRecord {
	return TiesRecord{
		Kind:        f.Get("kind", "type", "tieType"),
		Description: f.Get("description", "summary"),
		Holder:      f.Get("holder", "name", "owner"),
	}
}

// ParseStatementRole normalises the free-form statement type tag.
func ParseStatementRole(raw string) StatementRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sponsor", "sponsor_statement", "sponsor-statement", "third_party":
		return RoleSponsor
	case "applicant", "personal", "self", "own":
		return RoleApplicant
	default:
		return RoleUnknown
	}
}
