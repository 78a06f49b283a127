package orders

import "testing"

func TestStatusBuckets(t *testing.T) {
	want := map[Status]Bucket{
		StatusPending:        BucketNew,
		StatusAccepted:       BucketOngoing,
		StatusPreparing:      BucketOngoing,
		StatusReadyForPickup: BucketOngoing,
		StatusOutForDelivery: BucketOngoing,
		StatusCompleted:      BucketHistorical,
		StatusCancelled:      BucketHistorical,
		StatusRejected:       BucketHistorical,
	}
	for st, b := range want {
		if st.Bucket() != b {
			t.Fatalf("%s: expected bucket %s, got %s", st, b, st.Bucket())
		}
		if st.IsTerminal() != (b == BucketHistorical) {
			t.Fatalf("%s: terminal flag disagrees with bucket", st)
		}
	}
	for _, st := range []Status{"preparing", "Delivered", ""} {
		if b := st.Bucket(); b != "" {
			t.Fatalf("%q should belong to no bucket, got %s", st, b)
		}
	}
}

func TestParse(t *testing.T) {
	if st, err := ParseStatus("readyforpickup"); err != nil || st != StatusReadyForPickup {
		t.Fatalf("ParseStatus: %v %s", err, st)
	}
	if _, err := ParseStatus("Delivered"); KindOf(err) != KindInvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown status, got %v", err)
	}
	if b, err := ParseBucket("historical"); err != nil || b != BucketHistorical {
		t.Fatalf("ParseBucket: %v %s", err, b)
	}
	if _, err := ParsePaymentStatus("owed"); KindOf(err) != KindInvalidArgument {
		t.Fatalf("expected InvalidArgument for unknown payment status, got %v", err)
	}
}

func TestNextStatus(t *testing.T) {
	if next, ok := NextStatus(StatusOutForDelivery); !ok || next != StatusCompleted {
		t.Fatalf("expected OutForDelivery -> Completed, got %s %v", next, ok)
	}
	if _, ok := NextStatus(StatusPending); ok {
		t.Fatalf("Pending has no advance edge; it is accepted instead")
	}
}
