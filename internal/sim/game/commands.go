package game

import (
	"strconv"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/actions"
	"idlecraft.ai/internal/sim/events"
)

// Command is an ACT waiting for the loop. Resp, when set, receives the result
// and should be buffered.
type Command struct {
	Act  protocol.ActMsg
	Resp chan protocol.ResultMsg
}

// Setting names accepted by set_setting.
const (
	SettingLanguage   = "language"
	SettingTheme      = "theme"
	SettingAutoSave   = "autoSaveIntervalMs"
	SettingMaxActions = "maxActions"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Execute applies one command. It must run on the loop goroutine, or with the
// loop stopped.
func (g *Game) Execute(act protocol.ActMsg) protocol.ResultMsg {
	g.stats.Commands.Add(1)
	res := protocol.ResultMsg{Type: protocol.TypeResult, ActID: act.ActID, Cmd: act.Cmd, OK: true}

	outcome, success, err := g.dispatch(act)
	if err != nil {
		g.stats.Rejections.Add(1)
		res.OK = false
		res.Code = protocol.CodeOf(err)
		res.Reason = protocol.ReasonOf(err)
		res.Message = err.Error()
		g.toast(false, res.Reason)
		return res
	}
	res.Outcome = string(outcome)
	if success != "" {
		res.Reason = success
		g.toast(true, success)
	}
	return res
}

func (g *Game) dispatch(act protocol.ActMsg) (actions.Outcome, string, error) {
	switch act.Cmd {
	case protocol.CmdStartGathering:
		out, err := g.actions.StartAction(actions.Request{Kind: actions.Gathering, NodeID: act.NodeID})
		return out, "", err

	case protocol.CmdStartCrafting:
		out, err := g.actions.StartAction(actions.Request{Kind: actions.Crafting, RecipeID: act.RecipeID, Loops: act.Amount})
		return out, "", err

	case protocol.CmdStopAction:
		kind, id := actions.Gathering, act.NodeID
		if act.RecipeID != "" {
			kind, id = actions.Crafting, act.RecipeID
		}
		if g.actions.Stop(kind, id) {
			return actions.Stopped, "", nil
		}
		return "", "", nil

	case protocol.CmdBuyUpgrade:
		levels := act.Amount
		if levels == 0 {
			levels = 1
		}
		if err := g.upgrades.Buy(act.TargetID, levels); err != nil {
			return "", "", err
		}
		g.mods.Recompute(g.equipment, g.upgrades)
		return "", protocol.ReasonPurchaseCompleted, nil

	case protocol.CmdEquip:
		if err := g.equipment.Equip(act.ItemID); err != nil {
			return "", "", err
		}
		g.mods.Recompute(g.equipment, g.upgrades)
		return "", "", nil

	case protocol.CmdUnequip:
		if err := g.equipment.Unequip(act.SlotID); err != nil {
			return "", "", err
		}
		g.mods.Recompute(g.equipment, g.upgrades)
		return "", "", nil

	case protocol.CmdBuyItem:
		if err := g.shops.Buy(act.ShopID, act.ItemID, act.Amount); err != nil {
			return "", "", err
		}
		return "", protocol.ReasonPurchaseCompleted, nil

	case protocol.CmdSellItem:
		if err := g.shops.Sell(act.ItemID, act.Amount); err != nil {
			return "", "", err
		}
		return "", protocol.ReasonSaleCompleted, nil

	case protocol.CmdSetSetting:
		if err := g.setSetting(act.Setting, act.Value); err != nil {
			return "", "", err
		}
		return "", protocol.ReasonSettingsSaved, nil

	case protocol.CmdSave:
		if err := g.SaveNow(); err != nil {
			return "", "", protocol.Reject(protocol.ErrInternal, protocol.ReasonInvalidRequest, "save: %v", err)
		}
		return "", protocol.ReasonGameSaved, nil

	default:
		return "", "", protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "unknown cmd %q", act.Cmd)
	}
}

func (g *Game) setSetting(name, value string) error {
	switch name {
	case SettingLanguage:
		g.settings.Language = g.tr.SetLanguage(value)
	case SettingTheme:
		if value != ThemeDark && value != ThemeLight {
			return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "unknown theme %q", value)
		}
		g.settings.Theme = value
	case SettingAutoSave:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil || ms < 0 {
			return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "autosave interval %q", value)
		}
		g.settings.AutoSaveIntervalMs = ms
	case SettingMaxActions:
		n, err := strconv.Atoi(value)
		if err != nil {
			return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "max actions %q", value)
		}
		if err := g.actions.SetMaxActions(n); err != nil {
			return err
		}
		return nil
	default:
		return protocol.Reject(protocol.ErrBadRequest, protocol.ReasonInvalidRequest, "unknown setting %q", name)
	}
	g.submitSettings()
	return nil
}

func (g *Game) toast(ok bool, reasonID string) {
	g.bus.Publish(events.Toast, events.ToastPayload{Success: ok, ReasonID: reasonID, Text: g.tr.T(reasonID)})
}
