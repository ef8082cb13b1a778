package core

// Tab keys.
const (
	TabMembers       = "members"
	TabMaintenance   = "maintenance"
	TabComplaints    = "complaints"
	TabExpenditure   = "expenditure"
	TabNotifications = "notifications"
)

// Members columns.
const (
	memFlat = iota
	memName
	memPhone
	memEmail
	memPassword
	memRole
	memStatus
	memJoined
	memVacated
	memFee
)

// Maintenance columns.
const (
	payReceipt = iota
	payFlat
	payMonth
	payAmount
	payPaidOn
	payMode
	payOrderID
	payPaymentID
	payRemarks
)

// Complaints columns.
const (
	cmpID = iota
	cmpFlat
	cmpKind
	cmpCategory
	cmpDescription
	cmpStatus
	cmpRaised
	cmpUpdated
	cmpRemarks
)

// Expenditure columns.
const (
	expID = iota
	expDate
	expCategory
	expDescription
	expAmount
	expPaidTo
	expMode
	expRecordedBy
)

// Notifications columns.
const (
	ntfID = iota
	ntfTitle
	ntfMessage
	ntfPosted
	ntfExpires
	ntfPostedBy
)

// ReceiptPrefix prefixes receipt numbers in Maintenance column A.
const ReceiptPrefix = "RCPT-"

func init() {
	Register(TabDefinition{
		Key:  TabMembers,
		Name: "Members",
		Columns: []string{
			"Flat No", "Name", "Phone", "Email", "Password Hash",
			"Role", "Status", "Joined On", "Vacated On", "Monthly Fee",
		},
	})
	Register(TabDefinition{
		Key:  TabMaintenance,
		Name: "Maintenance",
		Columns: []string{
			"Receipt No", "Flat No", "Month", "Amount", "Paid On",
			"Mode", "Order ID", "Payment ID", "Remarks",
		},
		IDPrefix: ReceiptPrefix,
	})
	Register(TabDefinition{
		Key:  TabComplaints,
		Name: "Complaints",
		Columns: []string{
			"ID", "Flat No", "Kind", "Category", "Description",
			"Status", "Raised On", "Updated On", "Remarks",
		},
		IDPrefix: "CMP-",
	})
	Register(TabDefinition{
		Key:  TabExpenditure,
		Name: "Expenditure",
		Columns: []string{
			"ID", "Date", "Category", "Description", "Amount",
			"Paid To", "Mode", "Recorded By",
		},
		IDPrefix: "EXP-",
	})
	Register(TabDefinition{
		Key:  TabNotifications,
		Name: "Notifications",
		Columns: []string{
			"ID", "Title", "Message", "Posted On", "Expires On", "Posted By",
		},
		IDPrefix: "NTF-",
	})
}
