package eventstore

import (
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// Sentinels for journal failures. Returned errors match them with errors.Is
// and carry the underlying cause.
var (
	ErrJournalOpen    = errors.EventStoreError("could not open build journal").Build()
	ErrJournalMigrate = errors.EventStoreError("could not migrate build journal schema").Build()
	ErrJournalWrite   = errors.EventStoreError("could not write build journal").Build()
	ErrJournalRead    = errors.EventStoreError("could not read build journal").Build()
	ErrEncodeEvent    = errors.EventStoreError("could not encode journal event").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).
		WithRetry(sentinel.RetryStrategy()).
		Build()
}
