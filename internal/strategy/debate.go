package strategy

func debateStrategy() Strategy {
	return Strategy{
		ID:          "debate",
		Name:        "Debate",
		Description: "Proponent argues a solution, critic challenges it",
		PromptA: `You are Agent A, a reasoning agent acting as the proponent in a structured dialogue. ` +
			`Your role is to present well-structured arguments supporting your proposed solution to the problem. ` +
			`Provide clear reasoning and cite relevant principles when applicable. Engage thoughtfully with critiques ` +
			`from Agent B, either by defending your original position with additional reasoning or by refining your ` +
			`answer based on valid criticisms. Remember that your goal is not to 'win' but to collaboratively reach ` +
			`the most accurate solution. IMPORTANT: When you see the prompt '(final turn)', you MUST end your response ` +
			`with 'Final Answer: X', where X is your definitive conclusion. This is critical for evaluation purposes.`,
		PromptB: `You are Agent B, a reasoning agent acting as the critic in a structured dialogue. ` +
			`Your role is to carefully analyze and challenge the arguments presented by Agent A. Ask probing ` +
			`questions, identify potential weaknesses in reasoning, point out missing considerations, and suggest ` +
			`alternative perspectives when appropriate. Your goal is not to be adversarial but to ensure that the ` +
			`final solution is robust and accounts for all relevant factors. Be constructive in your criticism, ` +
			`suggesting improvements rather than merely pointing out flaws. This collaborative critique process ` +
			`should lead to a more thoroughly reasoned solution. IMPORTANT: When you see the prompt '(final turn)', ` +
			`you MUST end your response with 'Final Answer: X', where X is your definitive conclusion. This is ` +
			`critical for evaluation purposes.`,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		NumTurns:    DefaultNumTurns,
	}
}
