// Package ledger reconstructs per-product stock ledgers from the movement log.
//
// The engine is pure: every entry point takes full snapshots of movements,
// sales and products and returns new values. Classification turns a line's
// free-text reason into a Bucket, accumulation folds classified lines into
// period totals plus a pre-window net, and reconstruction derives opening and
// closing balances that must reconcile with the live stock.
package ledger

// Bucket is the semantic category of one movement line.
type Bucket string

const (
	BucketProduction         Bucket = "production"
	BucketReceived           Bucket = "received"
	BucketAdjustmentIn       Bucket = "adjustmentIn"
	BucketAdjustmentOut      Bucket = "adjustmentOut"
	BucketTransferIn         Bucket = "transferIn"
	BucketTransferOut        Bucket = "transferOut"
	BucketReturnIn           Bucket = "returnIn"
	BucketReturnOut          Bucket = "returnOut"
	BucketSaleToFarm         Bucket = "saleToFarm"
	BucketSaleToClient       Bucket = "saleToClient"
	BucketSaleToOutlet       Bucket = "saleToOutlet"
	BucketShortageAllowed    Bucket = "shortageAllowed"
	BucketShortageDisallowed Bucket = "shortageDisallowed"
	BucketUnfinished         Bucket = "unfinished"
	BucketDailyCount         Bucket = "dailyCount"
	BucketSackAdjustment     Bucket = "sackAdjustment"
	BucketOther              Bucket = "other"
)

// Polarity says how a bucket's quantity enters the closing balance.
type Polarity int

const (
	// Additive buckets hold magnitudes that increase stock.
	Additive Polarity = iota + 1
	// Subtractive buckets hold magnitudes that decrease stock.
	Subtractive
	// Signed buckets hold a net; a line may move stock either way.
	Signed
)

type bucketInfo struct {
	polarity Polarity
	title    string
}

var buckets = map[Bucket]bucketInfo{
	BucketProduction:         {Additive, "إنتاج"},
	BucketReceived:           {Additive, "وارد"},
	BucketAdjustmentIn:       {Additive, "تسوية بالإضافة"},
	BucketAdjustmentOut:      {Subtractive, "تسوية بالعجز"},
	BucketTransferIn:         {Additive, "تحويل وارد"},
	BucketTransferOut:        {Subtractive, "تحويل صادر"},
	BucketReturnIn:           {Additive, "مرتجع وارد"},
	BucketReturnOut:          {Subtractive, "مرتجع صادر"},
	BucketSaleToFarm:         {Subtractive, "مبيعات مزارع"},
	BucketSaleToClient:       {Subtractive, "مبيعات عملاء"},
	BucketSaleToOutlet:       {Subtractive, "مبيعات منافذ"},
	BucketShortageAllowed:    {Subtractive, "عجز مسموح"},
	BucketShortageDisallowed: {Subtractive, "عجز غير مسموح"},
	BucketUnfinished:         {Subtractive, "غير تام"},
	BucketDailyCount:         {Signed, "جرد يومي"},
	BucketSackAdjustment:     {Signed, "تسوية شكاير"},
	BucketOther:              {Signed, "أخرى"},
}

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	_, ok := buckets[b]
	return ok
}

// Polarity returns how b enters the closing balance.
func (b Bucket) Polarity() Polarity {
	if info, ok := buckets[b]; ok {
		return info.polarity
	}
	return Signed
}

// Title is the column heading shown in reports.
func (b Bucket) Title() string {
	if info, ok := buckets[b]; ok {
		return info.title
	}
	return string(b)
}

// sign is the factor applied to a line's magnitude when it lands in b.
// Signed buckets keep the line's own direction.
func (b Bucket) sign(direction Direction) float64 {
	switch b.Polarity() {
	case Additive:
		return 1
	case Subtractive:
		return -1
	default:
		return float64(direction)
	}
}
