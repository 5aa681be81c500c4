/*
Package parley is a conversational bot engine built around three ideas:
trigram fuzzy matching for what the user said, a scored transition graph for
where the conversation can go, and a locked per-conversation register for
what happened so far.

Each inbound message runs one dispatch cycle. The engine acquires the
conversation's register, ranks every eligible transition concurrently,
executes the winning state (or its confused fallback), chases internal
follow-up transitions, flushes the buffered reply and persists the new
register. The lock makes cycles strictly serial per conversation even across
processes, so a user mashing the send button cannot interleave two
half-finished updates.

# Usage

States are registered in code; the graph between them can be built in code
or loaded from a YAML bot definition. A minimal bot:

	registry := engine.NewRegistry()
	registry.Register("Hello", func(req *engine.Request, rsp *engine.Responder, trigger, userTrigger engine.Trigger) engine.State {
		return &HelloState{rsp: rsp}
	})

	bot, err := parley.New([]engine.Transition{
		{Dest: "Hello", Factory: engine.Text(engine.NewIntent("HELLO", trigram.Alt("hello")))},
	}, "Hello", registry)
	if err != nil {
		log.Fatal(err)
	}

	err = bot.Dispatch(ctx, msg, platform)

Registers live in memory by default; pass WithBackend with the Redis adapter
to share them across processes. The cmd/parley CLI wires the whole thing
into a webhook server and an interactive terminal session.
*/
package parley
