package webmail

import (
	"context"
	"sync"
	"testing"
)

func TestConcurrentComposes(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, WithMaxConcurrentComposes(3))

	const perSender = 10
	senders := []string{alice, bob, carol}

	var wg sync.WaitGroup
	errs := make(chan error, len(senders)*perSender)
	for _, sender := range senders {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			mb := svc.Client(sender)
			for i := 0; i < perSender; i++ {
				if _, err := mb.Compose(ctx, ComposeRequest{
					Recipients: alice + "," + bob + "," + carol,
					Subject:    "concurrent",
				}); err != nil {
					errs <- err
				}
			}
		}(sender)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("compose error: %v", err)
	}

	// Every user received one copy from each of the 30 composes.
	for _, u := range senders {
		inbox, err := svc.Client(u).Inbox(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("inbox %s: %v", u, err)
		}
		// Own sends add the sender copy as well, since it lists u as a recipient.
		want := int64(len(senders)*perSender + perSender)
		if inbox.Total != want {
			t.Errorf("%s inbox total = %d, want %d", u, inbox.Total, want)
		}
	}
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	res := mustCompose(t, svc.Client(alice), bob, "flip")
	mb := svc.Client(bob)
	id := res.Delivered[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			flags := Flags{}.WithRead(i%2 == 0).WithArchived(i%3 == 0)
			if err := mb.Update(ctx, id, flags); err != nil {
				t.Errorf("update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if _, err := mb.Get(ctx, id); err != nil {
		t.Fatalf("get after concurrent updates: %v", err)
	}
}

func TestCloseWaitsForComposes(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Composes racing Close either finish or see ErrNotConnected.
			_, _ = svc.Client(alice).Compose(ctx, ComposeRequest{Recipients: bob})
		}()
	}
	if err := svc.Close(ctx); err != nil {
		t.Errorf("close: %v", err)
	}
	wg.Wait()
}
