// Package webmail is the mailbox core of a small closed webmail system.
//
// Registered users compose messages to other registered users. A compose
// stores one entry per mailbox involved: the sender's copy plus one copy per
// recipient. Each copy carries its own read and archived flags, owned by the
// user it belongs to. Folders are views derived from those entries:
//
//   - inbox: entries the user owns and received, not archived
//   - sent: entries the user owns and authored
//   - archive: entries the user owns and received, archived
//
// # Basic Usage
//
//	st := memory.New()
//	dir := directory.New(st)
//
//	svc, err := webmail.NewService(
//	    webmail.WithStore(st),
//	    webmail.WithDirectory(dir),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	alice := svc.Client("alice@example.com")
//	res, err := alice.Compose(ctx, webmail.ComposeRequest{
//	    Recipients: "bob@example.com, carol@example.com",
//	    Subject:    "Hello",
//	    Body:       "Lunch?",
//	})
//
//	bob := svc.Client("bob@example.com")
//	inbox, _ := bob.Inbox(ctx, webmail.ListOptions{})
//	_ = bob.Update(ctx, inbox.Entries[0].ID, webmail.FlagsMarkRead)
//
// # Storage Backends
//
//   - In-memory (store/memory)
//   - SQLite (store/sqlite), pure Go via modernc.org/sqlite
//   - PostgreSQL (store/postgres)
//   - MongoDB (store/mongo)
//
// # Events
//
// Each service runs its own event bus from github.com/rbaliyan/event/v3.
// Without WithRedisClient or WithEventTransport events go to a noop transport.
//
//	svc.Events().EmailSent.Subscribe(ctx, handler)
//
// # Error Handling
//
// Store and directory failures are wrapped so errors.Is matches both the
// webmail sentinel and the underlying one:
//
//	if errors.Is(err, webmail.ErrUnknownRecipient) {
//	    var ur *webmail.UnknownRecipientError
//	    errors.As(err, &ur)
//	    fmt.Println("no such user:", ur.Address)
//	}
package webmail
