package vhdl

const rule = "-------------------------------------------------------------------------------------"

const coreTmpl = rule + `
-- {{.FileName}}
` + rule + `
{{template "attribution" .Header}}-- Description: Primary absolute value logic based on carry-look-ahead structure.
--              This '2c' version takes an input sign.
-- Precision:   {{.N}} bits
` + rule + `
--
-- Finds the sign and magnitude of a two's complement input.
-- Takes one slow clock cycle (` + "`hw_clk`" + `) to complete.
-- The only difference between this '2c' version and the standard (sign/mag) version
-- is that this version takes the sign as input directly instead of taking the MSB of the input.
--
` + rule + `
-- Generics
` + rule + `
--
-- [G_n]: Size of parallel input.
--
-- [G_levels]: Number of levels of invert look-ahead logic below the top level.
--             Not used directly, but exists for clarity.
--
-- [G_l0_size]: Equal to the smallest power of 4 larger than [G_n].
--
-- [G_li_size]: Set of [G_levels] generics used to frame each level of logic.
--              i = 0..[G_levels]
--
` + rule + `
-- Ports
` + rule + `
--
-- [input_sign]: Input sign for sign-and-magnitude representation.
--
-- [input]: Parallel data input (magnitude).
--
-- [output]: Two's complement of the signed input ([G_n] bits).
--
-- [prop_out]: Output from top level ILA. Not strictly necessary for use.
--
` + rule + `

library IEEE;
  use IEEE.std_logic_1164.all;
  use IEEE.numeric_std.all;

entity {{.Entity}} is
  generic (
{{.Generics}}
  );
  port (
    input_sign : in    std_logic;
    input      : in    std_logic_vector(G_n - 1 downto 0);
    output     : out   std_logic_vector(G_n - 1 downto 0);
    prop_out   : out   std_logic
  );
end {{.Entity}};

architecture behavioral of {{.Entity}} is

{{.Components}}
  signal sign         : std_logic; -- the sign of the input
  signal top_prop_out : std_logic; -- the output of the top level ILA

{{.Signals}}
begin

{{.Assigns}}
{{.Body}}
end architecture behavioral;
`

const wrapperTmpl = rule + `
-- {{.FileName}}
` + rule + `
{{template "attribution" .Header}}-- Description: Absolute value (two's complement) logic wrapper.
-- Precision:   {{.N}} bits
` + rule + `
--
-- Finds the two's complement of a sign and magnitude input.
-- Takes one slow clock cycle (` + "`hw_clk`" + `) to complete.
--
` + rule + `
-- Generics
` + rule + `
--
-- [G_n]: Size of the magnitude of the sign-and-magnitude input.
--
` + rule + `
-- Ports
` + rule + `
--
-- [reg_clk]: Register clock signal.
--
-- [hw_clk]: Clock for absolute logic hardware.
--
-- [start]: Tells hardware to begin processing.
--
-- [load]: Loads [input] into the buffer register.
--
-- [reset]: Asynchronous reset signal.
--
-- [input_sign]: Input sign for sign-and-magnitude representation.
--
-- [input]: Parallel data input (magnitude).
--
-- [output]: Sign extended two's complement output ([G_n] + 1 bits!)
--
-- [done]: High once the hardware has finished processing.
--
` + rule + `

library IEEE;
  use IEEE.std_logic_1164.all;

entity {{.Entity}} is
  generic (
    G_n : integer := {{.N}}  -- Input magnitude length is n
  );
  port (
    reg_clk    : in    std_logic;
    hw_clk     : in    std_logic;
    start      : in    std_logic;
    load       : in    std_logic;
    reset      : in    std_logic;
    input_sign : in    std_logic;
    input      : in    std_logic_vector(G_n - 1 downto 0);
    output     : out   std_logic_vector(G_n downto 0); -- important! sign extended, additional bit (n + 1 not n)
    done       : out   std_logic
  );
end {{.Entity}};

architecture structural of {{.Entity}} is

  ----------------
  -- Components --
  ----------------

  component {{.Core}} is
    port (
      input_sign : in    std_logic;
      input      : in    std_logic_vector(G_n - 1 downto 0);
      output     : out   std_logic_vector(G_n - 1 downto 0);
      prop_out   : out   std_logic
    );
  end component;

  component storage_register is
    generic (
      G_n : integer
    );
    port (
      input  : in    std_logic_vector(G_n - 1 downto 0);
      clk    : in    std_logic;
      reset  : in    std_logic;
      load   : in    std_logic;
      output : out   std_logic_vector(G_n - 1 downto 0)
    );
  end component;

  component d_flip_flop is
    port (
      input  : in    std_logic;
      clk    : in    std_logic;
      reset  : in    std_logic;
      output : out   std_logic
    );
  end component;

  --------------------
  -- Absolute Logic --
  --------------------

  signal abs_hw_input : std_logic_vector(G_n - 1 downto 0);

begin

  done_generator : d_flip_flop
    port map (
      input  => start,
      clk    => hw_clk,
      reset  => reset,
      output => done
    );

  ---------------------
  -- Buffer Register --
  ---------------------

  -- ensures hardware input is valid since [output] will go back to source of [input]
  input_buf_reg : storage_register
    generic map (
      G_n => G_n
    )
    port map (
      input  => input,
      clk    => reg_clk,
      reset  => reset,
      load   => load,
      output => abs_hw_input
    );

  -----------------------------
  -- Absolute Logic Hardware --
  -----------------------------

  abs_2c_hw : {{.Core}}
    port map (
      input_sign => input_sign,
      input      => abs_hw_input,
      output     => output(output'left - 1 downto 0),
      prop_out   => open
    );

  output(output'left) <= input_sign;

end architecture structural;
`

const attributionTmpl = `{{define "attribution"}}{{with .Authors}}-- Authors:     {{.}}
{{end}}{{with .Copyright}}-- Copyright:   {{.}}
{{end}}{{with .License}}-- License:     {{.}}
{{end}}{{end}}`
