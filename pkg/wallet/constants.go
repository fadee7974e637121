package wallet

const (
	// Operation names and statuses reported through OperationLog.
	OperationProvision        = "provision"
	OperationSetActive        = "set_active"
	OperationRecordCollection = "record_collection"
	OperationCollect          = "collect"

	OperationStatusOK       = "ok"
	OperationStatusReplayed = "replayed"
	OperationStatusError    = "error"

	// ReferenceTypeWalletCollection tags both legs of a collect.
	ReferenceTypeWalletCollection = "wallet_collection"
	// ReferenceTypeFieldCollection tags the credit leg of a reported shop collection.
	ReferenceTypeFieldCollection = "field_collection"

	fieldCollectionKeyPrefix = "field_collection:"

	amountScale int32 = 2

	// DefaultPageLimit applies when a page carries no limit.
	DefaultPageLimit = 50
	// MaxPageLimit caps history pages.
	MaxPageLimit = 200
)
