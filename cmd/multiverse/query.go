package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multiverse/internal/embedding"
	"multiverse/internal/orchestrator"
	"multiverse/internal/pack"
	"multiverse/internal/ports"
	"multiverse/internal/query"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [input]",
		Short: "Launch a universe and ask an NPC a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd)

			o, err := orchestrator.New(orchestrator.Config{Options: opts, Logger: logger})
			if err != nil {
				return err
			}
			if _, err := o.LaunchDemo(cmd.Context()); err != nil {
				return err
			}

			loader := pack.NewLoader(pack.Config{
				TemplatesDir: mustString(cmd, "packs"),
				Logger:       logger,
			})
			if err := loader.LoadAllPacks(); err != nil {
				return err
			}

			var embeddings *embedding.Service
			if use, _ := cmd.Flags().GetBool("semantic"); use {
				embeddings, err = embedding.NewService(embedding.Config{
					Encoder:   embedding.NewHashEncoder(opts.EmbeddingDim),
					BatchSize: opts.EmbeddingBatchSize,
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				if err := embeddings.BuildEmbeddings(cmd.Context(), loader); err != nil {
					return err
				}
			}

			realmID := mustString(cmd, "realm")
			npcs := o.Adapters().NPCs.GetRealmNPCs(realmID)
			if len(npcs) == 0 {
				return fmt.Errorf("realm %q has no registered npcs", realmID)
			}
			target := npcs[0]

			players := query.NewMemoryPlayerStore()
			players.Put("player_demo", ports.PlayerProfile{
				Name:             "Aria",
				Title:            "Renowned Adventurer",
				FactionID:        query.FactionOf(realmID),
				InventorySummary: "a sturdy pack and a worn map",
				QuestContext:     "seeking the lost ledger",
			})
			reputation := query.NewMemoryReputationStore()
			if delta, _ := cmd.Flags().GetInt("reputation"); delta != 0 {
				if _, err := reputation.ModifyReputation(cmd.Context(), "player_demo", query.FactionOf(realmID), delta); err != nil {
					return err
				}
			}

			service, err := query.NewService(query.Config{
				Packs:      loader,
				Embeddings: embeddings,
				Reputation: reputation,
				Players:    players,
				NPCs:       o.Adapters().NPCs,
				Dialogues:  o.Adapters().Dialogues,
				Universe:   o.Universe(),
				Options:    opts,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			for _, input := range args {
				resp, err := service.QueryNPC(cmd.Context(), "player_demo", target.NPCID, input, realmID)
				if err != nil {
					return err
				}
				fmt.Printf("%s %s\n", yellow("you:"), input)
				fmt.Printf("%s %s\n", green(resp.SlotSnapshot["npc_name"]+":"), resp.NPCResponse)
				fmt.Printf("  %s template=%s path=%s tier=%s turn=%d\n",
					gray("·"), resp.TemplateID, resp.Path, resp.Tier, resp.Turn)
			}
			return nil
		},
	}
	addLaunchFlags(cmd)
	cmd.Flags().String("packs", "packs/templates", "templates directory")
	cmd.Flags().String("realm", "tavern", "realm whose first npc answers")
	cmd.Flags().Bool("semantic", true, "use the semantic retrieval path")
	cmd.Flags().Int("reputation", 0, "starting reputation delta with the npc's faction")
	return cmd
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
