package eventbus

const (
	TopicDocumentEvents = "world.documents"
	TopicSessionEvents  = "world.sessions"
)
