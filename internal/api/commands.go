package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/elemelon/internal/game"
	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/types"
)

// CommandProcessor runs slash commands typed into the in-game console
type CommandProcessor struct {
	gameManager interfaces.GameManager
	formatter   *MessageFormatter
}

// NewCommandProcessor creates a command processor for gameManager
func NewCommandProcessor(gameManager interfaces.GameManager) *CommandProcessor {
	return &CommandProcessor{
		gameManager: gameManager,
		formatter:   NewMessageFormatter(),
	}
}

// Process handles one console command and returns the reply text
func (cp *CommandProcessor) Process(command string) string {
	// Clean and normalize command
	command = cleanCommand(command)

	if !strings.HasPrefix(command, "/") {
		return "Commands start with '/'. Type /help to list them."
	}
	fields := strings.Fields(strings.TrimPrefix(command, "/"))
	if len(fields) == 0 {
		return cp.handleHelpCommand()
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "help":
		return cp.handleHelpCommand()
	case "status":
		return cp.handleStatusCommand()
	case "temples":
		return cp.formatter.FormatTemples(cp.gameManager.Temples())
	case "shop":
		return cp.formatter.FormatShop(cp.gameManager.ShopItems())
	case "buy":
		return cp.handleBuyCommand(args)
	case "solve":
		return cp.handleSolveCommand(args)
	case "attack":
		return cp.handleAttackCommand(args)
	case "use":
		return cp.handleUseCommand(args)
	case "weapon":
		return cp.handleWeaponCommand(args)
	case "save":
		return cp.handleSaveCommand(args)
	case "load":
		return cp.handleLoadCommand(args)
	case "seed":
		return fmt.Sprintf("World seed: %d", cp.gameManager.WorldSeed())
	}

	return "Unknown command. Type /help to list the commands."
}

func (cp *CommandProcessor) handleHelpCommand() string {
	return "COMMANDS\n\n" +
		"/status - health, tokens and progress\n" +
		"/temples - temple progress\n" +
		"/shop - items for sale\n" +
		"/buy [item] - buy an item\n" +
		"/solve [element] [puzzle] - solve a temple puzzle\n" +
		"/attack [element|final] - strike a boss\n" +
		"/use [slot] - use a consumable\n" +
		"/weapon [slot] - switch weapon\n" +
		"/save [quick] - save the game\n" +
		"/load [slot] - load a save\n" +
		"/seed - show the world seed"
}

func (cp *CommandProcessor) handleStatusCommand() string {
	status, err := cp.gameManager.Status()
	if err != nil {
		return errorReply(err)
	}
	return cp.formatter.FormatStatus(status)
}

func (cp *CommandProcessor) handleBuyCommand(args []string) string {
	if len(args) < 1 {
		return "Which item? Type: /buy [item]"
	}
	if err := cp.gameManager.Buy(args[0]); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("Bought %s.", args[0])
}

func (cp *CommandProcessor) handleSolveCommand(args []string) string {
	if len(args) < 2 {
		return "Type: /solve [element] [puzzle]"
	}
	element := types.Element(args[0])
	if err := cp.gameManager.SolvePuzzle(element, args[1]); err != nil {
		return errorReply(err)
	}
	for _, t := range cp.gameManager.Temples() {
		if t.Element == element {
			return fmt.Sprintf("Puzzle solved (%d/%d).", t.PuzzlesSolved, t.PuzzlesTotal)
		}
	}
	return "Puzzle solved."
}

func (cp *CommandProcessor) handleAttackCommand(args []string) string {
	if len(args) < 1 {
		return "Type: /attack [element|final]"
	}
	if err := cp.gameManager.AttackBoss(args[0]); err != nil {
		return errorReply(err)
	}
	return "Hit!"
}

func (cp *CommandProcessor) handleUseCommand(args []string) string {
	slot, ok := parseSlot(args)
	if !ok {
		return "Type: /use [slot]"
	}
	if err := cp.gameManager.UseConsumable(slot); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("Used slot %d.", slot+1)
}

func (cp *CommandProcessor) handleWeaponCommand(args []string) string {
	slot, ok := parseSlot(args)
	if !ok {
		return "Type: /weapon [slot]"
	}
	if err := cp.gameManager.SelectWeapon(slot); err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("Weapon %d ready.", slot+1)
}

func (cp *CommandProcessor) handleSaveCommand(args []string) string {
	kind := types.SaveManual
	if len(args) > 0 && args[0] == "quick" {
		kind = types.SaveQuick
	}
	summary, err := cp.gameManager.SaveGame(kind)
	if err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("Saved to %s.", summary.Slot)
}

func (cp *CommandProcessor) handleLoadCommand(args []string) string {
	slot := "quick"
	if len(args) > 0 {
		slot = args[0]
	}
	loaded, err := cp.gameManager.LoadGame(slot)
	if err != nil {
		return errorReply(err)
	}
	if !loaded {
		return "No save found there. Starting a fresh game."
	}
	return fmt.Sprintf("Loaded %s.", slot)
}

// parseSlot reads a 1-based slot number into a 0-based index
func parseSlot(args []string) (int, bool) {
	if len(args) < 1 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, game.ErrInsufficientTokens):
		return "Not enough tokens."
	case errors.Is(err, game.ErrOutOfStock):
		return "Sold out. Come back after the next restock."
	case errors.Is(err, game.ErrPrerequisite):
		return "Complete more temples to unlock that item."
	case errors.Is(err, game.ErrInventoryFull):
		return "Your inventory is full."
	case errors.Is(err, game.ErrBossNotActive):
		return "There is no boss to fight there."
	case errors.Is(err, game.ErrOutOfRange):
		return "Get closer first."
	case errors.Is(err, game.ErrWeaponCooldown):
		return "Your weapon is still recovering."
	}
	return fmt.Sprintf("Error: %s", err.Error())
}

// cleanCommand normalizes and cleans a command string
func cleanCommand(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}

// MessageFormatter renders game views as console text
type MessageFormatter struct{}

// NewMessageFormatter creates a new message formatter
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// FormatStatus formats the player status
func (mf *MessageFormatter) FormatStatus(status *types.PlayerStatus) string {
	message := "STATUS\n\n"
	message += fmt.Sprintf("Health: %d/%d\n", status.Health, status.MaxHealth)
	message += fmt.Sprintf("Stamina: %.0f%%\n", status.StaminaPercent)
	message += fmt.Sprintf("Tokens: %d\n", status.Tokens)
	message += fmt.Sprintf("Weapon: %s\n", status.WeaponName)
	message += fmt.Sprintf("Progress: %.0f%% (%d/%d temples)\n",
		status.Progress.GameProgress, status.Progress.CompletedTemples, types.TempleCount)

	var elements []string
	for _, e := range types.AllElements {
		if status.Progress.CollectedElements[e] {
			elements = append(elements, string(e))
		}
	}
	if len(elements) > 0 {
		message += fmt.Sprintf("Elements: %s\n", strings.Join(elements, ", "))
	}
	if status.Victory {
		message += "\nThe Melon King has fallen!\n"
	} else if status.FinalBossOpen {
		message += "\nThe final boss awaits at spawn.\n"
	}
	return message
}

// FormatTemples formats the temple list
func (mf *MessageFormatter) FormatTemples(temples []types.TempleStatus) string {
	message := "TEMPLES\n\n"
	for _, t := range temples {
		message += fmt.Sprintf("%s: %s", t.Element, strings.ReplaceAll(t.State, "_", " "))
		if t.State == types.TemplePuzzlesActive.String() {
			message += fmt.Sprintf(" (%d/%d puzzles)", t.PuzzlesSolved, t.PuzzlesTotal)
		}
		if t.State == types.TempleBossActive.String() {
			message += fmt.Sprintf(" (boss %.0f/%.0f)", t.BossHealth, t.BossMaxHealth)
		}
		message += "\n"
	}
	return message
}

// FormatShop formats the shop catalog
func (mf *MessageFormatter) FormatShop(items []types.ShopItem) string {
	message := "SHOP\n\n"
	for _, it := range items {
		message += fmt.Sprintf("%s - %s: %d tokens", it.ID, it.Name, it.Price)
		if it.Stock == 0 {
			message += " (sold out)"
		}
		if it.MinTemplesCompleted > 0 {
			message += fmt.Sprintf(" [needs %d temples]", it.MinTemplesCompleted)
		}
		message += "\n"
	}
	return message
}
