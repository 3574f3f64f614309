package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	FraudEventsQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	FraudEventsQueue:    "fraud_events_queue",
}
